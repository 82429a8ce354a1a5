package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"chat-backend/internal/domain/chat"
)

// HTTPService implements webhook notifications via HTTP POST.
type HTTPService struct {
	client *resty.Client
	url    string
	log    zerolog.Logger
}

var _ chat.Notifier = (*HTTPService)(nil)

// NewHTTPService creates a webhook service posting to the given URL.
func NewHTTPService(url string, log zerolog.Logger) *HTTPService {
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second)

	return &HTTPService{
		client: client,
		url:    url,
		log:    log.With().Str("component", "webhook").Logger(),
	}
}

// NotifyStreamFinished posts the terminal state of a generation.
func (s *HTTPService) NotifyStreamFinished(ctx context.Context, event chat.StreamFinishedEvent) error {
	payload := Payload{
		Event:          eventName(event.Status),
		StreamID:       event.StreamID,
		ConversationID: event.ConversationID,
		Model:          event.Model,
		Status:         event.Status.String(),
		ErrorCode:      event.ErrorCode,
		DurationMs:     event.DurationMs,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Chat-Event", payload.Event).
		SetHeader("X-Chat-Stream-ID", payload.StreamID).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		s.log.Warn().Err(err).Str("url", s.url).Msg("webhook delivery failed")
		return fmt.Errorf("send webhook: %w", err)
	}
	if resp.IsError() {
		s.log.Warn().Int("status", resp.StatusCode()).Str("url", s.url).Msg("webhook delivery rejected")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	s.log.Info().
		Str("event", payload.Event).
		Str("stream_id", payload.StreamID).
		Int("status", resp.StatusCode()).
		Msg("webhook delivered")
	return nil
}
