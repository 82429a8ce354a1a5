package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/resume"
	"chat-backend/internal/domain/status"
	"chat-backend/internal/domain/stream"
	"chat-backend/internal/domain/uimessage"
)

// ErrResumeNotEligible is returned when a resume-flagged request finds no
// pending user turn or another request already consumed the trigger.
var ErrResumeNotEligible = errors.New("conversation not eligible for auto resume")

// ErrConversationNotFound is returned when a public ID resolves to nothing.
var ErrConversationNotFound = errors.New("conversation not found")

// StreamStartObserver is an optional extension of stream.Observer.
// Observers implementing it learn the session identifier before the
// first fragment, which is what a client needs to issue a cancel.
type StreamStartObserver interface {
	OnStarted(streamID, conversationID string)
}

// Notifier delivers lifecycle events for finished generations to external
// consumers. Implementations must be safe for concurrent use.
type Notifier interface {
	NotifyStreamFinished(ctx context.Context, event StreamFinishedEvent) error
}

// StreamFinishedEvent describes a generation that reached a terminal state.
type StreamFinishedEvent struct {
	StreamID       string        `json:"stream_id"`
	ConversationID string        `json:"conversation_id"`
	Model          string        `json:"model"`
	Status         status.Status `json:"status"`
	ErrorCode      string        `json:"error_code,omitempty"`
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"duration_ms"`
}

// StreamParams carries one chat generation request into the service.
type StreamParams struct {
	ConversationPublicID string
	UserID               string
	Model                string
	Messages             []uimessage.Message
	Resume               bool
	SkipUserMessage      bool
	Temperature          *float64
	MaxTokens            *int
	Observer             stream.Observer
}

// Service exposes the chat domain operations.
type Service interface {
	CreateConversation(ctx context.Context, userID, model string, title *string, first *uimessage.Message) (*Conversation, error)
	GetConversation(ctx context.Context, publicID string) (*Conversation, []uimessage.Message, error)
	StreamChat(ctx context.Context, params StreamParams) (*stream.Result, error)
	CancelStream(streamID string) bool
}

// ServiceImpl provides the domain implementation.
type ServiceImpl struct {
	conversations ConversationRepository
	messages      MessageRepository
	reconciler    *Reconciler
	orchestrator  *stream.Orchestrator
	sessions      *stream.Manager
	tracker       resume.Tracker
	catalog       *llm.Catalog
	notifier      Notifier
	systemPrompt  string
	log           zerolog.Logger
}

var _ Service = (*ServiceImpl)(nil)

// NewService wires dependencies. notifier may be nil when no webhook
// endpoint is configured.
func NewService(
	conversations ConversationRepository,
	messages MessageRepository,
	reconciler *Reconciler,
	orchestrator *stream.Orchestrator,
	sessions *stream.Manager,
	tracker resume.Tracker,
	catalog *llm.Catalog,
	notifier Notifier,
	systemPrompt string,
	log zerolog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		conversations: conversations,
		messages:      messages,
		reconciler:    reconciler,
		orchestrator:  orchestrator,
		sessions:      sessions,
		tracker:       tracker,
		catalog:       catalog,
		notifier:      notifier,
		systemPrompt:  strings.TrimSpace(systemPrompt),
		log:           log.With().Str("component", "chat-service").Logger(),
	}
}

// CreateConversation starts a conversation for the user, optionally
// seeding it with a first turn. A missing title is derived from that turn.
func (s *ServiceImpl) CreateConversation(ctx context.Context, userID, model string, title *string, first *uimessage.Message) (*Conversation, error) {
	if title == nil && first != nil {
		if derived := DeriveTitle(first.Text()); derived != "" {
			title = &derived
		}
	}

	conv := NewConversation(userID, title, model)
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, chaterrors.NewPersistence("create conversation", err)
	}

	if first != nil && first.HasContent() {
		row, err := newRow(conv.ID, *first)
		if err != nil {
			return nil, err
		}
		if err := s.messages.BulkInsert(ctx, []Message{row}); err != nil {
			return nil, chaterrors.NewPersistence("store first turn", err)
		}
	}
	return conv, nil
}

// GetConversation returns the conversation and its normalized history.
func (s *ServiceImpl) GetConversation(ctx context.Context, publicID string) (*Conversation, []uimessage.Message, error) {
	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, chaterrors.NewPersistence("fetch conversation", err)
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}

	history, err := s.loadHistory(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, history, nil
}

// StreamChat runs one generation end to end: reconcile history with the
// client payload, drive the provider stream, and persist the outcome.
func (s *ServiceImpl) StreamChat(ctx context.Context, params StreamParams) (*stream.Result, error) {
	if strings.TrimSpace(params.Model) == "" {
		return nil, chaterrors.NewValidation(chaterrors.ErrCodeModelRequired, "model is required")
	}

	// Reject unroutable models before touching storage so a bad request
	// cannot leave an empty conversation behind.
	if err := s.orchestrator.ResolveModel(params.Model); err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, params)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	merged := uimessage.Merge(history, params.Messages, false)
	if len(merged) == 0 {
		return nil, chaterrors.NewValidation(chaterrors.ErrCodeInvalidInput, "at least one message is required")
	}

	lastUser := latestUserMessage(merged)

	if params.Resume {
		if err := s.claimResume(conv.PublicID, merged); err != nil {
			return nil, err
		}
	}

	session := stream.NewSession(conv.PublicID, params.Model)
	s.sessions.Register(session)
	defer s.sessions.Remove(session.ID)

	if starter, ok := params.Observer.(StreamStartObserver); ok {
		starter.OnStarted(session.ID, conv.PublicID)
	}

	req := llm.ChatRequest{
		Model:        params.Model,
		Messages:     s.buildProviderMessages(merged, params.Model),
		SystemPrompt: s.systemPrompt,
		Temperature:  params.Temperature,
		MaxTokens:    params.MaxTokens,
	}

	started := time.Now()
	result, runErr := s.orchestrator.Run(ctx, session, req, params.Observer)
	if runErr != nil {
		s.notifyFinished(conv, session, status.StatusFailed, runErr, started)
		return nil, runErr
	}

	userRow := lastUser
	if params.SkipUserMessage {
		userRow = nil
	}

	// Storage trouble must not clobber a stream the client already
	// received; log it and hand the result back.
	if err := s.reconciler.PersistTurn(ctx, conv.ID, session.Model, userRow, result.Message); err != nil {
		s.log.Error().Err(err).
			Str("conversation_id", conv.PublicID).
			Str("stream_id", session.ID).
			Msg("persist finished turn failed")
	} else {
		s.maybeSetTitle(ctx, conv, lastUser)
	}

	s.notifyFinished(conv, session, result.Status, nil, started)
	return result, nil
}

// CancelStream requests cancellation of an in-flight generation.
func (s *ServiceImpl) CancelStream(streamID string) bool {
	return s.sessions.Cancel(streamID)
}

func (s *ServiceImpl) resolveConversation(ctx context.Context, params StreamParams) (*Conversation, error) {
	if strings.TrimSpace(params.ConversationPublicID) == "" {
		return s.CreateConversation(ctx, params.UserID, params.Model, nil, nil)
	}

	conv, err := s.conversations.FindByPublicID(ctx, params.ConversationPublicID)
	if err != nil {
		return nil, chaterrors.NewPersistence("fetch conversation", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *ServiceImpl) loadHistory(ctx context.Context, conversationID uint) ([]uimessage.Message, error) {
	rows, err := s.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, chaterrors.NewPersistence("list conversation messages", err)
	}

	history := make([]uimessage.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.ToUIMessage()
		if err != nil {
			s.log.Warn().Err(err).
				Str("message_id", row.PublicID).
				Msg("skipping stored message with invalid role")
			continue
		}
		history = append(history, msg)
	}
	return history, nil
}

// claimResume enforces the one-shot auto-resume contract: the merged
// history must end on a user turn and only the first claimant proceeds.
func (s *ServiceImpl) claimResume(conversationPublicID string, merged []uimessage.Message) error {
	if len(merged) == 0 || merged[len(merged)-1].Role != uimessage.RoleUser {
		return ErrResumeNotEligible
	}
	if !s.tracker.ShouldResume(conversationPublicID) {
		return ErrResumeNotEligible
	}
	if !s.tracker.MarkResumed(conversationPublicID) {
		return ErrResumeNotEligible
	}
	return nil
}

func (s *ServiceImpl) buildProviderMessages(merged []uimessage.Message, model string) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(merged)+1)
	if s.systemPrompt != "" {
		messages = append(messages, llm.ChatMessage{Role: string(uimessage.RoleSystem), Content: s.systemPrompt})
	}
	for _, msg := range merged {
		messages = append(messages, llm.ChatMessage{Role: string(msg.Role), Content: msg.Text()})
	}

	result := llm.TrimMessagesToFitContext(messages, s.catalog.ContextLength(model))
	if result.TrimmedCount > 0 {
		s.log.Info().
			Int("trimmed", result.TrimmedCount).
			Int("estimated_tokens", result.EstimatedTokens).
			Str("model", model).
			Msg("trimmed oldest assistant turns to fit context window")
	}
	return result.Messages
}

func (s *ServiceImpl) maybeSetTitle(ctx context.Context, conv *Conversation, lastUser *uimessage.Message) {
	if conv.Title != nil || lastUser == nil {
		return
	}
	title := DeriveTitle(lastUser.Text())
	if title == "" {
		return
	}
	conv.Title = &title
	conv.UpdatedAt = time.Now()
	if err := s.conversations.Update(ctx, conv); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("set conversation title failed")
	}
}

func (s *ServiceImpl) notifyFinished(conv *Conversation, session *stream.Session, st status.Status, cause error, started time.Time) {
	if s.notifier == nil {
		return
	}

	event := StreamFinishedEvent{
		StreamID:       session.ID,
		ConversationID: conv.PublicID,
		Model:          session.Model,
		Status:         st,
		Duration:       time.Since(started),
		DurationMs:     time.Since(started).Milliseconds(),
	}
	if cause != nil {
		var chatErr *chaterrors.ChatError
		if errors.As(cause, &chatErr) {
			event.ErrorCode = chatErr.Code
		} else {
			event.ErrorCode = chaterrors.ErrCodeProviderFailure
		}
	}

	// Delivery retries inside the notifier can outlive the request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.NotifyStreamFinished(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("stream_id", event.StreamID).Msg("stream finished notification failed")
		}
	}()
}

func latestUserMessage(merged []uimessage.Message) *uimessage.Message {
	for i := len(merged) - 1; i >= 0; i-- {
		if merged[i].Role == uimessage.RoleUser {
			msg := merged[i]
			return &msg
		}
	}
	return nil
}
