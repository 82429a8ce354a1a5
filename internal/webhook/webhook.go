// Package webhook delivers stream lifecycle notifications to a configured
// HTTP endpoint.
package webhook

import (
	"context"

	"chat-backend/internal/domain/chat"
	"chat-backend/internal/domain/status"
)

// Payload is the structure sent to the webhook URL.
type Payload struct {
	Event          string `json:"event"` // "stream.completed", "stream.cancelled" or "stream.failed"
	StreamID       string `json:"stream_id"`
	ConversationID string `json:"conversation_id"`
	Model          string `json:"model"`
	Status         string `json:"status"`
	ErrorCode      string `json:"error_code,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// NopService drops all notifications; used when no webhook URL is set.
type NopService struct{}

var _ chat.Notifier = NopService{}

// NotifyStreamFinished implements chat.Notifier.
func (NopService) NotifyStreamFinished(context.Context, chat.StreamFinishedEvent) error {
	return nil
}

func eventName(st status.Status) string {
	switch st {
	case status.StatusCompleted:
		return "stream.completed"
	case status.StatusCancelled:
		return "stream.cancelled"
	default:
		return "stream.failed"
	}
}
