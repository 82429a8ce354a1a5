package entities

import (
	"time"

	"chat-backend/internal/domain/chat"
)

// Conversation represents the database schema for conversations.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	Title    *string `gorm:"type:varchar(256)"`
	UserID   string  `gorm:"type:varchar(64);index:idx_conversation_user;not null"`
	Model    string  `gorm:"type:varchar(100)"`

	Messages []Message `gorm:"foreignKey:ConversationID"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts the database entity to its domain model.
func (c *Conversation) EtoD() *chat.Conversation {
	return &chat.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Title:     c.Title,
		UserID:    c.UserID,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewSchemaConversation creates a database entity from the domain model.
func NewSchemaConversation(c *chat.Conversation) *Conversation {
	return &Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Title:     c.Title,
		UserID:    c.UserID,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
