package stream

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager tracks in-flight sessions so cancel requests and shutdown can
// reach them by stream ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      zerolog.Logger
}

// NewManager creates an empty session registry.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log.With().Str("component", "stream-manager").Logger(),
	}
}

// Register adds a session to the registry. The caller must Remove it once
// the session reaches a terminal state.
func (m *Manager) Register(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
}

// Get returns the session for the stream ID, or nil when unknown.
func (m *Manager) Get(streamID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[streamID]
}

// Remove drops a finished session from the registry.
func (m *Manager) Remove(streamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, streamID)
}

// Cancel requests cancellation of the named session. It reports whether
// the session was found and still cancellable.
func (m *Manager) Cancel(streamID string) bool {
	session := m.Get(streamID)
	if session == nil {
		return false
	}
	accepted := session.RequestCancel()
	if accepted {
		m.log.Info().Str("stream_id", streamID).Msg("cancel requested")
	}
	return accepted
}

// ActiveCount returns the number of registered sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown cancels all in-flight sessions and waits for them to drain
// from the registry, up to the given timeout.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.mu.RLock()
	count := len(m.sessions)
	for _, session := range m.sessions {
		session.RequestCancel()
	}
	m.mu.RUnlock()

	if count == 0 {
		return
	}
	m.log.Info().Int("active", count).Msg("cancelling in-flight streams")

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.ActiveCount() == 0 {
			m.log.Info().Msg("all streams drained")
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	m.log.Warn().Int("remaining", m.ActiveCount()).Msg("stream drain timed out")
}
