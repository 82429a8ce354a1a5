package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/uimessage"
)

// Reconciler writes the outcome of a finished generation to storage
// without double-writing turns that already exist. Client retries and
// stream resumes replay the same user turn; the reconciler recognises it
// by ID first and by latest identical text second.
type Reconciler struct {
	messages MessageRepository
	log      zerolog.Logger
}

// NewReconciler wires dependencies.
func NewReconciler(messages MessageRepository, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		messages: messages,
		log:      log.With().Str("component", "persistence-reconciler").Logger(),
	}
}

// PersistTurn stores the user turn (if new) and the assistant turn (if it
// produced content) in one batch. userMsg may be nil when the generation
// was triggered without a fresh user turn, such as an auto resume. The
// assistant row records the model that produced it.
func (r *Reconciler) PersistTurn(ctx context.Context, conversationID uint, model string, userMsg *uimessage.Message, assistantMsg uimessage.Message) error {
	var batch []Message

	if userMsg != nil {
		row, err := r.userRow(ctx, conversationID, *userMsg)
		if err != nil {
			return err
		}
		if row != nil {
			batch = append(batch, *row)
		}
	}

	if assistantMsg.HasContent() {
		row, err := newRow(conversationID, assistantMsg)
		if err != nil {
			return err
		}
		if model != "" {
			row.Model = &model
		}
		batch = append(batch, row)
	} else {
		r.log.Debug().
			Uint("conversation_id", conversationID).
			Msg("assistant turn empty, nothing to persist")
	}

	if len(batch) == 0 {
		return nil
	}

	if err := r.messages.BulkInsert(ctx, batch); err != nil {
		return chaterrors.NewPersistence("store conversation turns", err)
	}
	return nil
}

// userRow returns the user message as an insertable row, or nil when an
// equivalent row already exists.
func (r *Reconciler) userRow(ctx context.Context, conversationID uint, userMsg uimessage.Message) (*Message, error) {
	existing, err := r.messages.FindByPublicID(ctx, conversationID, userMsg.ID)
	if err != nil {
		return nil, chaterrors.NewPersistence("look up user turn by id", err)
	}
	if existing != nil {
		r.log.Debug().
			Uint("conversation_id", conversationID).
			Str("message_id", userMsg.ID).
			Msg("user turn already stored under this id")
		return nil, nil
	}

	// Retried requests can carry a regenerated client ID; fall back to
	// matching the latest user turn with identical text.
	byText, err := r.messages.FindLatestByText(ctx, conversationID, string(uimessage.RoleUser), userMsg.Text())
	if err != nil {
		return nil, chaterrors.NewPersistence("look up user turn by text", err)
	}
	if byText != nil {
		r.log.Debug().
			Uint("conversation_id", conversationID).
			Str("message_id", userMsg.ID).
			Str("stored_id", byText.PublicID).
			Msg("user turn already stored with identical text")
		return nil, nil
	}

	row, err := newRow(conversationID, userMsg)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func newRow(conversationID uint, msg uimessage.Message) (Message, error) {
	content, err := msg.SerializeParts()
	if err != nil {
		return Message{}, chaterrors.NewPersistence("serialize message parts", err)
	}

	publicID := msg.ID
	if publicID == "" {
		publicID = uuid.NewString()
	}
	createdAt := timeOrNow(msg.CreatedAt)

	return Message{
		PublicID:       publicID,
		ConversationID: conversationID,
		Role:           msg.Role,
		Content:        content,
		CreatedAt:      createdAt,
	}, nil
}
