package handlers

import (
	"github.com/rs/zerolog"

	"chat-backend/internal/domain/chat"
	"chat-backend/internal/domain/llm"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat         *ChatHandler
	Conversation *ConversationHandler
	Model        *ModelHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(chatService chat.Service, catalog *llm.Catalog, log zerolog.Logger) *Provider {
	return &Provider{
		Chat:         NewChatHandler(chatService, log),
		Conversation: NewConversationHandler(chatService, log),
		Model:        NewModelHandler(catalog, log),
	}
}
