// Package message persists conversation turns in PostgreSQL.
package message

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"chat-backend/internal/domain/chat"
	"chat-backend/internal/infrastructure/database/entities"
	"chat-backend/internal/infrastructure/metrics"
	"chat-backend/internal/infrastructure/observability"
)

// Repository persists conversation turns.
type Repository struct {
	db *gorm.DB
}

var _ chat.MessageRepository = (*Repository)(nil)

// NewRepository builds a message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// BulkInsert stores a batch of turns in one statement.
func (r *Repository) BulkInsert(ctx context.Context, messages []chat.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ctx, span := observability.StartPersistSpan(ctx, strconv.FormatUint(uint64(messages[0].ConversationID), 10))
	defer span.End()

	rows := make([]*entities.Message, len(messages))
	for i := range messages {
		rows[i] = entities.NewSchemaMessage(&messages[i])
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("bulk insert messages: %w", err)
	}

	for i, row := range rows {
		messages[i].ID = row.ID
		metrics.RecordPersistedTurn(string(messages[i].Role))
	}
	return nil
}

// ListByConversationID returns all turns of a conversation in insertion order.
func (r *Repository) ListByConversationID(ctx context.Context, conversationID uint) ([]chat.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	result := make([]chat.Message, len(rows))
	for i := range rows {
		result[i] = *rows[i].EtoD()
	}
	return result, nil
}

// FindByPublicID fetches one turn by its client-visible ID. A missing row
// yields (nil, nil).
func (r *Repository) FindByPublicID(ctx context.Context, conversationID uint, publicID string) (*chat.Message, error) {
	var entity entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND public_id = ?", conversationID, publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	return entity.EtoD(), nil
}

// FindLatestByText fetches the newest turn with the given role and
// flattened text. A missing row yields (nil, nil).
func (r *Repository) FindLatestByText(ctx context.Context, conversationID uint, role string, text string) (*chat.Message, error) {
	var entity entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND role = ? AND text = ?", conversationID, role, text).
		Order("created_at DESC, id DESC").
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch message by text: %w", err)
	}
	return entity.EtoD(), nil
}
