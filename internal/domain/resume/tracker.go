// Package resume tracks which conversations have already consumed their
// one-shot auto-resume trigger. The ledger is process local; a restart
// clears it, which downgrades behaviour to "no auto resume" rather than
// causing duplicate generations.
package resume

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Tracker answers whether a conversation may auto-trigger a generation
// and records that the trigger has been consumed.
type Tracker interface {
	// ShouldResume reports whether the conversation has not yet consumed
	// its auto-resume trigger.
	ShouldResume(conversationID string) bool
	// MarkResumed records the trigger as consumed. It returns true for
	// the first caller and false for every later caller, so concurrent
	// requests elect exactly one winner.
	MarkResumed(conversationID string) bool
	// Clear removes the mark so a later resume signal can fire again.
	Clear(conversationID string)
}

type cacheTracker struct {
	store *gocache.Cache
	ttl   time.Duration
}

// NewTracker returns a Tracker backed by an in-process concurrent cache.
// A zero ttl keeps marks for the life of the process.
func NewTracker(ttl time.Duration) Tracker {
	expiration := gocache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		cleanup = 0
	}
	return &cacheTracker{
		store: gocache.New(expiration, cleanup),
		ttl:   ttl,
	}
}

func (t *cacheTracker) ShouldResume(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	_, found := t.store.Get(conversationID)
	return !found
}

func (t *cacheTracker) MarkResumed(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	expiration := gocache.NoExpiration
	if t.ttl > 0 {
		expiration = t.ttl
	}
	// Add is atomic on the cache shard, so only one concurrent caller wins.
	err := t.store.Add(conversationID, struct{}{}, expiration)
	return err == nil
}

func (t *cacheTracker) Clear(conversationID string) {
	t.store.Delete(conversationID)
}
