// Package conversation persists conversation metadata in PostgreSQL.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chat-backend/internal/domain/chat"
	"chat-backend/internal/infrastructure/database/entities"
)

// Repository persists conversation metadata.
type Repository struct {
	db *gorm.DB
}

var _ chat.ConversationRepository = (*Repository)(nil)

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation record.
func (r *Repository) Create(ctx context.Context, conv *chat.Conversation) error {
	entity := entities.NewSchemaConversation(conv)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID fetches a conversation by its public ID. A missing row
// yields (nil, nil).
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*chat.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}

	return entity.EtoD(), nil
}

// Update saves changed conversation fields.
func (r *Repository) Update(ctx context.Context, conv *chat.Conversation) error {
	entity := entities.NewSchemaConversation(conv)
	if err := r.db.WithContext(ctx).Save(entity).Error; err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}
