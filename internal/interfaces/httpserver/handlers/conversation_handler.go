package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/domain/chat"
	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/uimessage"
	"chat-backend/internal/interfaces/httpserver/dto"
)

// ConversationHandler exposes HTTP entrypoints for conversations.
type ConversationHandler struct {
	service chat.Service
	log     zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service chat.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// Create handles POST /v1/conversations
// @Summary Create a conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body dto.CreateConversationRequest true "Create request"
// @Success 201 {object} dto.ConversationPayload
// @Failure 400 {object} dto.ErrorPayload
// @Router /v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorPayload{Code: chaterrors.ErrCodeInvalidInput, Message: err.Error()})
		return
	}

	var first *uimessage.Message
	if req.Message != nil {
		msg, err := req.Message.ToDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorPayload{Code: codeForError(err), Message: err.Error()})
			return
		}
		first = &msg
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), subjectOrGuest(c), req.Model, req.Title, first)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorPayload{Code: codeForError(err), Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto.FromConversation(conv, nil))
}

// Get handles GET /v1/conversations/:conversation_id
// @Summary Get conversation metadata
// @Tags Conversations
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Success 200 {object} dto.ConversationPayload
// @Failure 404 {object} dto.ErrorPayload
// @Router /v1/conversations/{conversation_id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, _, err := h.fetch(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, dto.FromConversation(conv, nil))
}

// ListMessages handles GET /v1/conversations/:conversation_id/messages
// @Summary List the normalized conversation history in order
// @Tags Conversations
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} dto.ErrorPayload
// @Router /v1/conversations/{conversation_id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	_, history, err := h.fetch(c)
	if err != nil {
		return
	}

	data := make([]dto.MessagePayload, 0, len(history))
	for _, msg := range history {
		data = append(data, dto.FromUIMessage(msg))
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

// fetch loads the conversation and writes the error response on failure.
func (h *ConversationHandler) fetch(c *gin.Context) (*chat.Conversation, []uimessage.Message, error) {
	id := c.Param("conversation_id")
	conv, history, err := h.service.GetConversation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorPayload{Code: codeForError(err), Message: err.Error()})
			return nil, nil, err
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorPayload{Code: codeForError(err), Message: err.Error()})
		return nil, nil, err
	}
	return conv, history, nil
}
