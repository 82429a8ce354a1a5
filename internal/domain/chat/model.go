// Package chat is the core domain: conversations, their persisted
// messages, and the service that reconciles client history against
// storage before and after each model generation.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/domain/uimessage"
)

const titleMaxLen = 50

// Conversation is a logical chat thread. Model is the identifier the
// conversation was started with.
type Conversation struct {
	ID        uint
	PublicID  string
	Title     *string
	UserID    string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one persisted conversation turn. Content holds the
// serialized message parts; uimessage.FromStored decodes it. Model is
// the identifier that produced an assistant turn, nil for user turns.
type Message struct {
	ID             uint
	PublicID       string
	ConversationID uint
	Role           uimessage.Role
	Content        []byte
	Model          *string
	CreatedAt      time.Time
}

// NewConversation creates a conversation with a fresh public ID.
func NewConversation(userID string, title *string, model string) *Conversation {
	now := time.Now()
	return &Conversation{
		PublicID:  newPublicID("conv"),
		Title:     title,
		UserID:    userID,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTitle builds a conversation title from the first user turn,
// truncated to a display-friendly length.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}

// ToUIMessage decodes the stored message into its transport shape.
func (m *Message) ToUIMessage() (uimessage.Message, error) {
	return uimessage.FromStored(m.PublicID, string(m.Role), m.Content, m.CreatedAt)
}

func newPublicID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

func timeOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}
