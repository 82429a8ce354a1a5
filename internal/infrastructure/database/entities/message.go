package entities

import (
	"time"

	"gorm.io/datatypes"

	"chat-backend/internal/domain/chat"
	"chat-backend/internal/domain/uimessage"
)

// Message represents the database schema for conversation turns. Content
// holds the serialized message parts as JSONB; Text is a flattened copy
// kept for duplicate lookups on retried requests.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PublicID       string         `gorm:"type:varchar(64);uniqueIndex:idx_message_conversation_public_id;not null"`
	ConversationID uint           `gorm:"uniqueIndex:idx_message_conversation_public_id;index:idx_message_conversation_created;not null"`
	Role           string         `gorm:"type:varchar(20);not null"`
	Content        datatypes.JSON `gorm:"type:jsonb;not null"`
	Text           string         `gorm:"type:text;index:idx_message_text_lookup"`
	Model          *string        `gorm:"type:varchar(100)"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// EtoD converts the database entity to its domain model.
func (m *Message) EtoD() *chat.Message {
	return &chat.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Role:           uimessage.Role(m.Role),
		Content:        []byte(m.Content),
		Model:          m.Model,
		CreatedAt:      m.CreatedAt,
	}
}

// NewSchemaMessage creates a database entity from the domain model. The
// flattened text column is derived from the stored parts.
func NewSchemaMessage(m *chat.Message) *Message {
	text := ""
	if decoded, err := m.ToUIMessage(); err == nil {
		text = decoded.Text()
	}

	return &Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        datatypes.JSON(m.Content),
		Text:           text,
		Model:          m.Model,
		CreatedAt:      m.CreatedAt,
	}
}
