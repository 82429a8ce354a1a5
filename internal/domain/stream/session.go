// Package stream owns the lifecycle of a single model generation: the
// state machine from request to terminal state, cooperative cancellation,
// and assembly of provider fragments into one assistant message.
package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/status"
	"chat-backend/internal/domain/uimessage"
)

// Session is the mutable record of one in-flight generation. All methods
// are safe for concurrent use; the HTTP layer polls CancelRequested while
// the orchestrator appends fragments.
type Session struct {
	ID             string
	ConversationID string
	Model          string
	StartedAt      time.Time

	mu              sync.Mutex
	status          status.Status
	cancelRequested bool
	parts           []uimessage.Part
	current         strings.Builder
	currentKind     llm.FragmentKind
	fragmentCount   int
	messageID       string
}

// NewSession returns a session in the idle state with a fresh message ID
// for the assistant turn it will produce.
func NewSession(conversationID, model string) *Session {
	return &Session{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Model:          model,
		StartedAt:      time.Now(),
		status:         status.StatusIdle,
		messageID:      uuid.NewString(),
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transition moves the session to the target state, enforcing the
// lifecycle transition table.
func (s *Session) Transition(target status.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.status.TransitionTo(target)
	if err != nil {
		return err
	}
	s.status = next
	return nil
}

// RequestCancel sets the cancellation flag. It reports whether the
// request was accepted; cancelling an already terminal session is a no-op.
func (s *Session) RequestCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return false
	}
	s.cancelRequested = true
	return true
}

// CancelRequested reports whether a cancel has been asked for. The
// orchestrator polls this between fragments.
func (s *Session) CancelRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRequested
}

// Append accumulates one provider fragment into the assistant turn.
// Consecutive fragments of one kind coalesce into a single part; a kind
// switch starts a new part, so arrival order survives into the message.
func (s *Session) Append(f llm.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Kind != s.currentKind && s.current.Len() > 0 {
		s.parts = append(s.parts, partOf(s.currentKind, s.current.String()))
		s.current.Reset()
	}
	s.currentKind = f.Kind
	s.current.WriteString(f.Delta)
	s.fragmentCount++
}

func partOf(kind llm.FragmentKind, text string) uimessage.Part {
	if kind == llm.FragmentReasoning {
		return uimessage.Part{Type: uimessage.PartReasoning, Text: text}
	}
	return uimessage.Part{Type: uimessage.PartText, Text: text}
}

// FragmentCount returns how many fragments have been accumulated.
func (s *Session) FragmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragmentCount
}

// AssistantMessage assembles the accumulated fragments into a message,
// parts in production order.
func (s *Session) AssistantMessage() uimessage.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]uimessage.Part, 0, len(s.parts)+1)
	parts = append(parts, s.parts...)
	if s.current.Len() > 0 {
		parts = append(parts, partOf(s.currentKind, s.current.String()))
	}
	if len(parts) == 0 {
		parts = nil
	}

	now := time.Now()
	return uimessage.Message{
		ID:        s.messageID,
		Role:      uimessage.RoleAssistant,
		Parts:     parts,
		CreatedAt: &now,
	}
}
