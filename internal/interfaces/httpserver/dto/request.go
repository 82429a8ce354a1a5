package dto

import (
	"time"

	"chat-backend/internal/domain/uimessage"
)

// MessagePart is one content unit in the HTTP contract.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClientMessage models one message submitted by the client. Either Text
// or Parts carries the content; Parts wins when both are present.
type ClientMessage struct {
	ID        string        `json:"id,omitempty"`
	Role      string        `json:"role" binding:"required"`
	Text      string        `json:"text,omitempty"`
	Parts     []MessagePart `json:"parts,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}

// ChatStreamRequest models POST /v1/chat input.
type ChatStreamRequest struct {
	ConversationID  string          `json:"conversation_id,omitempty"`
	Model           string          `json:"model" binding:"required"`
	Messages        []ClientMessage `json:"messages"`
	Resume          bool            `json:"resume,omitempty"`
	SkipUserMessage bool            `json:"skip_user_message,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxTokens       *int            `json:"max_tokens,omitempty"`
}

// CreateConversationRequest models POST /v1/conversations input. Message
// seeds the conversation with its first turn; the title is derived from
// it when absent. Model records which model the conversation targets.
type CreateConversationRequest struct {
	Title   *string        `json:"title,omitempty"`
	Model   string         `json:"model,omitempty"`
	Message *ClientMessage `json:"message,omitempty"`
}

// ToDomainMessages normalizes the client messages into canonical form.
func (r ChatStreamRequest) ToDomainMessages() ([]uimessage.Message, error) {
	messages := make([]uimessage.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msg, err := uimessage.FromClient(m.toPayload())
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ToDomain normalizes one client message into canonical form.
func (m ClientMessage) ToDomain() (uimessage.Message, error) {
	return uimessage.FromClient(m.toPayload())
}

func (m ClientMessage) toPayload() uimessage.ClientPayload {
	parts := make([]uimessage.Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		parts = append(parts, uimessage.Part{Type: uimessage.PartType(p.Type), Text: p.Text})
	}
	return uimessage.ClientPayload{
		ID:        m.ID,
		Role:      m.Role,
		Text:      m.Text,
		Parts:     parts,
		CreatedAt: m.CreatedAt,
	}
}
