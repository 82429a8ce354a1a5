package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/domain/chat"
	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/status"
	"chat-backend/internal/domain/stream"
	"chat-backend/internal/domain/uimessage"
	"chat-backend/internal/infrastructure/auth"
	"chat-backend/internal/infrastructure/metrics"
	"chat-backend/internal/infrastructure/observability"
	"chat-backend/internal/interfaces/httpserver/dto"
)

// ChatHandler exposes HTTP entrypoints for chat generation.
type ChatHandler struct {
	service chat.Service
	log     zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(service chat.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// Stream handles POST /v1/chat
// @Summary Stream a chat completion
// @Description Reconciles the submitted messages with stored history, streams model output over SSE, and persists the finished turn.
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body dto.ChatStreamRequest true "Chat request"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} dto.ErrorPayload
// @Failure 404 {object} dto.ErrorPayload
// @Failure 409 {object} dto.ErrorPayload
// @Router /v1/chat [post]
func (h *ChatHandler) Stream(c *gin.Context) {
	var req dto.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorPayload{Code: chaterrors.ErrCodeInvalidInput, Message: err.Error()})
		return
	}

	messages, err := req.ToDomainMessages()
	if err != nil {
		h.writeError(c, nil, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, dto.ErrorPayload{Code: chaterrors.ErrCodeProviderFailure, Message: "streaming not supported"})
		return
	}

	observer := newSSEObserver(c.Writer, flusher, h.log)
	params := chat.StreamParams{
		ConversationPublicID: req.ConversationID,
		UserID:               subjectOrGuest(c),
		Model:                req.Model,
		Messages:             messages,
		Resume:               req.Resume,
		SkipUserMessage:      req.SkipUserMessage,
		Temperature:          req.Temperature,
		MaxTokens:            req.MaxTokens,
		Observer:             observer,
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	ctx, span := observability.StartStreamSpan(c.Request.Context(), req.ConversationID, req.Model)
	defer span.End()

	started := time.Now()
	result, err := h.service.StreamChat(ctx, params)
	if id := observer.StreamID(); id != "" {
		observability.SetStreamID(span, id)
	}
	if req.Resume {
		if errors.Is(err, chat.ErrResumeNotEligible) {
			metrics.RecordResume("denied")
		} else {
			metrics.RecordResume("granted")
		}
	}
	if err != nil {
		observability.RecordError(span, err)
		h.writeError(c, observer, err)
		metrics.RecordStream(req.Model, "failed", time.Since(started).Seconds(), observer.FragmentCount())
		return
	}

	observability.AddStatusTransition(span, string(status.StatusRequested), string(result.Status))
	if result.Status == status.StatusCancelled {
		observability.AddCancelEvent(span, observer.FragmentCount())
	}
	metrics.RecordStream(req.Model, string(result.Status), time.Since(started).Seconds(), observer.FragmentCount())
}

// Cancel handles POST /v1/chat/:stream_id/cancel
// @Summary Cancel an in-flight stream
// @Tags Chat
// @Produce json
// @Param stream_id path string true "Stream ID"
// @Success 202 {object} map[string]string
// @Failure 404 {object} dto.ErrorPayload
// @Router /v1/chat/{stream_id}/cancel [post]
func (h *ChatHandler) Cancel(c *gin.Context) {
	streamID := c.Param("stream_id")
	if !h.service.CancelStream(streamID) {
		c.JSON(http.StatusNotFound, dto.ErrorPayload{Code: chaterrors.ErrCodeInvalidInput, Message: "stream not found or already finished"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling", "stream_id": streamID})
}

// writeError reports a failure either as a JSON body or, once the SSE
// stream has begun, as a terminal error event.
func (h *ChatHandler) writeError(c *gin.Context, observer *sseObserver, err error) {
	if observer != nil && observer.Started() {
		return
	}
	c.JSON(statusForError(err), dto.ErrorPayload{Code: codeForError(err), Message: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrResumeNotEligible):
		return http.StatusConflict
	case chaterrors.IsUnsupportedModel(err):
		return http.StatusUnprocessableEntity
	case chaterrors.IsValidation(err):
		return http.StatusBadRequest
	case chaterrors.IsProvider(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeForError(err error) string {
	var chatErr *chaterrors.ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Code
	}
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		return "CONVERSATION_NOT_FOUND"
	case errors.Is(err, chat.ErrResumeNotEligible):
		return "RESUME_NOT_ELIGIBLE"
	default:
		return chaterrors.ErrCodeProviderFailure
	}
}

func subjectOrGuest(c *gin.Context) string {
	if sub := c.GetString(auth.UserIDKey); sub != "" {
		return sub
	}
	return "guest"
}

// sseObserver relays stream events to the client as server-sent events.
// Headers are written lazily so pre-stream failures can still use a
// regular JSON error response.
type sseObserver struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	log      zerolog.Logger
	mu       sync.Mutex
	started  bool
	streamID string
	count    int
}

func newSSEObserver(w http.ResponseWriter, flusher http.Flusher, log zerolog.Logger) *sseObserver {
	return &sseObserver{
		writer:  w,
		flusher: flusher,
		log:     log,
	}
}

// OnStarted announces the session so the client learns the cancel handle.
func (o *sseObserver) OnStarted(streamID, conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamID = streamID
	o.sendEventLocked("started", map[string]string{
		"stream_id":       streamID,
		"conversation_id": conversationID,
	})
}

func (o *sseObserver) OnFragment(f llm.Fragment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.count++
	o.sendEventLocked("fragment", map[string]string{
		"kind":  string(f.Kind),
		"delta": f.Delta,
	})
}

func (o *sseObserver) OnCompleted(msg uimessage.Message) {
	o.terminal("done", msg)
}

func (o *sseObserver) OnCancelled(msg uimessage.Message) {
	o.terminal("cancelled", msg)
}

func (o *sseObserver) OnFailed(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendEventLocked("error", dto.ErrorPayload{
		Code:    codeForError(err),
		Message: err.Error(),
	})
}

// StreamID returns the session identifier announced at stream start.
func (o *sseObserver) StreamID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streamID
}

// Started reports whether any SSE bytes were written.
func (o *sseObserver) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// FragmentCount returns how many delta events were delivered.
func (o *sseObserver) FragmentCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

func (o *sseObserver) terminal(name string, msg uimessage.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendEventLocked(name, map[string]interface{}{
		"stream_id": o.streamID,
		"message":   dto.FromUIMessage(msg),
	})
}

func (o *sseObserver) sendEventLocked(name string, payload interface{}) {
	if !o.started {
		o.writer.Header().Set("Content-Type", "text/event-stream")
		o.writer.Header().Set("Cache-Control", "no-cache")
		o.writer.Header().Set("Connection", "keep-alive")
		o.writer.WriteHeader(http.StatusOK)
		o.started = true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		o.log.Error().Err(err).Msg("marshal SSE payload")
		return
	}

	fmt.Fprintf(o.writer, "event: %s\n", name)
	fmt.Fprintf(o.writer, "data: %s\n\n", data)
	o.flusher.Flush()
}

var (
	_ stream.Observer          = (*sseObserver)(nil)
	_ chat.StreamStartObserver = (*sseObserver)(nil)
)
