package stream

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/status"
	"chat-backend/internal/domain/uimessage"
)

// Observer receives live events while a session streams. Implementations
// must tolerate being called from the orchestrator goroutine.
type Observer interface {
	OnFragment(f llm.Fragment)
	OnCompleted(msg uimessage.Message)
	OnCancelled(msg uimessage.Message)
	OnFailed(err error)
}

// Result is the outcome of a finished session. Message holds whatever
// output was assembled, including partial output after a cancel.
type Result struct {
	Status  status.Status
	Message uimessage.Message
}

// Orchestrator drives a provider stream to a terminal state, relaying
// fragments to the observer and honoring the session's cancel flag.
type Orchestrator struct {
	registry *llm.Registry
	log      zerolog.Logger
}

// NewOrchestrator wires dependencies.
func NewOrchestrator(registry *llm.Registry, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		log:      log.With().Str("component", "stream-orchestrator").Logger(),
	}
}

// ResolveModel checks that a provider is registered for the model. It
// performs no network activity, so callers can fail fast before creating
// any state for the request.
func (o *Orchestrator) ResolveModel(model string) error {
	_, err := o.registry.Resolve(model)
	return err
}

// Run executes one generation on the session. It returns a Result for
// completed and cancelled sessions; a non-nil error means the session
// failed. The cancel flag is polled between fragments, so cancellation
// lands within one fragment of the request.
func (o *Orchestrator) Run(ctx context.Context, session *Session, req llm.ChatRequest, observer Observer) (*Result, error) {
	if err := session.Transition(status.StatusRequested); err != nil {
		return nil, o.fail(session, observer, err)
	}

	provider, err := o.registry.Resolve(req.Model)
	if err != nil {
		return nil, o.fail(session, observer, err)
	}

	if session.CancelRequested() {
		return o.cancel(session, observer), nil
	}

	providerStream, err := provider.StreamChat(ctx, req)
	if err != nil {
		return nil, o.fail(session, observer, err)
	}
	defer providerStream.Close()

	if err := session.Transition(status.StatusStreaming); err != nil {
		return nil, o.fail(session, observer, err)
	}

	for {
		if session.CancelRequested() {
			return o.cancel(session, observer), nil
		}

		fragment, err := providerStream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A cancel between the poll and the read surfaces as a broken
			// stream; report it as a cancellation, not a failure.
			if session.CancelRequested() || errors.Is(err, context.Canceled) {
				return o.cancel(session, observer), nil
			}
			return nil, o.fail(session, observer, err)
		}
		// A cancel that raced the read fences here; the in-flight
		// fragment is dropped rather than delivered after the cancel.
		if session.CancelRequested() {
			return o.cancel(session, observer), nil
		}
		if fragment == nil {
			continue
		}

		session.Append(*fragment)
		if observer != nil {
			observer.OnFragment(*fragment)
		}
	}

	if err := session.Transition(status.StatusCompleted); err != nil {
		return nil, o.fail(session, observer, err)
	}

	msg := session.AssistantMessage()
	if observer != nil {
		observer.OnCompleted(msg)
	}

	o.log.Info().
		Str("stream_id", session.ID).
		Str("conversation_id", session.ConversationID).
		Int("fragments", session.FragmentCount()).
		Msg("stream completed")

	return &Result{Status: status.StatusCompleted, Message: msg}, nil
}

func (o *Orchestrator) cancel(session *Session, observer Observer) *Result {
	if err := session.Transition(status.StatusCancelled); err != nil {
		o.log.Warn().Err(err).Str("stream_id", session.ID).Msg("cancel transition rejected")
	}

	msg := session.AssistantMessage()
	if observer != nil {
		observer.OnCancelled(msg)
	}

	o.log.Info().
		Str("stream_id", session.ID).
		Str("conversation_id", session.ConversationID).
		Int("fragments", session.FragmentCount()).
		Msg("stream cancelled")

	return &Result{Status: status.StatusCancelled, Message: msg}
}

func (o *Orchestrator) fail(session *Session, observer Observer, cause error) error {
	if err := session.Transition(status.StatusFailed); err != nil {
		o.log.Warn().Err(err).Str("stream_id", session.ID).Msg("fail transition rejected")
	}

	var chatErr *chaterrors.ChatError
	if !errors.As(cause, &chatErr) {
		cause = chaterrors.NewProvider("stream terminated", cause)
	}

	if observer != nil {
		observer.OnFailed(cause)
	}

	o.log.Error().
		Err(cause).
		Str("stream_id", session.ID).
		Str("conversation_id", session.ConversationID).
		Msg("stream failed")

	return cause
}
