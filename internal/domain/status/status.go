// Package status defines the lifecycle states of a streaming session.
package status

import "errors"

// Status represents the lifecycle status of a stream session.
type Status string

const (
	// Non-terminal states
	StatusIdle      Status = "idle"      // Session created, nothing validated yet
	StatusRequested Status = "requested" // Model and messages validated, provider not yet called
	StatusStreaming Status = "streaming" // Fragments flowing to the client

	// Terminal states (no further transitions allowed)
	StatusCompleted Status = "completed" // Provider finished, full assistant message assembled
	StatusCancelled Status = "cancelled" // Consumer cancelled; partial output retained
	StatusFailed    Status = "failed"    // Provider error terminated the stream
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// IsActive returns true if the session is still doing work.
func (s Status) IsActive() bool {
	return s == StatusIdle || s == StatusRequested || s == StatusStreaming
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ValidTransitions defines allowed status transitions.
var ValidTransitions = map[Status][]Status{
	StatusIdle:      {StatusRequested, StatusFailed},
	StatusRequested: {StatusStreaming, StatusCancelled, StatusFailed},
	StatusStreaming: {StatusCompleted, StatusCancelled, StatusFailed},
	// Terminal states have no valid transitions
	StatusCompleted: {},
	StatusCancelled: {},
	StatusFailed:    {},
}

// CanTransitionTo checks if a transition from the current status to the target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns an error if invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}
