package chat

import "context"

// ConversationRepository exposes CRUD operations for conversation
// metadata. FindByPublicID returns (nil, nil) when no row matches.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	Update(ctx context.Context, conversation *Conversation) error
}

// MessageRepository persists individual conversation turns. The Find
// methods return (nil, nil) when no row matches.
type MessageRepository interface {
	BulkInsert(ctx context.Context, messages []Message) error
	ListByConversationID(ctx context.Context, conversationID uint) ([]Message, error)
	FindByPublicID(ctx context.Context, conversationID uint, publicID string) (*Message, error)
	FindLatestByText(ctx context.Context, conversationID uint, role string, text string) (*Message, error)
}
