package dto

import (
	"chat-backend/internal/domain/chat"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/uimessage"
)

// ConversationPayload is returned to clients.
type ConversationPayload struct {
	ID       string           `json:"id"`
	Object   string           `json:"object"`
	Title    *string          `json:"title,omitempty"`
	Model    string           `json:"model,omitempty"`
	Created  int64            `json:"created"`
	Updated  int64            `json:"updated"`
	Messages []MessagePayload `json:"messages,omitempty"`
}

// MessagePayload is one normalized conversation turn in the HTTP contract.
type MessagePayload struct {
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Parts   []MessagePart `json:"parts"`
	Created int64         `json:"created,omitempty"`
}

// ErrorPayload is the uniform error body.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ModelPayload describes one servable model.
type ModelPayload struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Provider       string `json:"provider"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ContextLength  int    `json:"context_length"`
	SupportsTools  bool   `json:"supports_tools"`
	SupportsVision bool   `json:"supports_vision"`
	Recommended    bool   `json:"recommended"`
}

// ModelListPayload is the GET /v1/models body.
type ModelListPayload struct {
	Object string         `json:"object"`
	Data   []ModelPayload `json:"data"`
}

// FromConversation maps the domain conversation and its history to DTO.
func FromConversation(conv *chat.Conversation, history []uimessage.Message) ConversationPayload {
	payload := ConversationPayload{
		ID:      conv.PublicID,
		Object:  "conversation",
		Title:   conv.Title,
		Model:   conv.Model,
		Created: conv.CreatedAt.Unix(),
		Updated: conv.UpdatedAt.Unix(),
	}
	for _, msg := range history {
		payload.Messages = append(payload.Messages, FromUIMessage(msg))
	}
	return payload
}

// FromUIMessage maps one canonical message to DTO.
func FromUIMessage(msg uimessage.Message) MessagePayload {
	parts := make([]MessagePart, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		parts = append(parts, MessagePart{Type: string(p.Type), Text: p.Text})
	}
	payload := MessagePayload{
		ID:    msg.ID,
		Role:  string(msg.Role),
		Parts: parts,
	}
	if msg.CreatedAt != nil {
		payload.Created = msg.CreatedAt.Unix()
	}
	return payload
}

// FromModels maps catalog entries to the list payload.
func FromModels(models []llm.ModelInfo) ModelListPayload {
	payload := ModelListPayload{Object: "list", Data: make([]ModelPayload, 0, len(models))}
	for _, m := range models {
		payload.Data = append(payload.Data, ModelPayload{
			ID:             m.ID,
			Object:         "model",
			Provider:       m.Provider,
			Name:           m.Name,
			Description:    m.Description,
			ContextLength:  m.ContextLength,
			SupportsTools:  m.SupportsTools,
			SupportsVision: m.SupportsVision,
			Recommended:    m.Recommended,
		})
	}
	return payload
}
