// Package llmprovider implements llm.Provider against OpenAI-compatible
// chat completion APIs. Both OpenAI and Google's Gemini OpenAI-compat
// endpoint speak this wire format.
package llmprovider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/retry"
	"chat-backend/internal/domain/uimessage"
)

// Client implements the llm.Provider interface.
type Client struct {
	name        string
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	restyClient *resty.Client
	retryPolicy retry.Policy
	log         zerolog.Logger
}

var _ llm.Provider = (*Client)(nil)

// NewClient creates a provider client. name identifies the upstream in
// logs ("openai", "google"); the retry policy governs connection attempts.
func NewClient(name, baseURL, apiKey string, timeout time.Duration, policy retry.Policy, log zerolog.Logger) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		restyClient: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetAuthToken(apiKey).
			SetTimeout(15 * time.Second),
		retryPolicy: policy,
		log:         log.With().Str("component", "llm-provider").Str("provider", name).Logger(),
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type wireDelta struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChat opens a streaming chat completion. Connection attempts are
// retried per the policy; once the stream is open no retries happen, a
// broken stream surfaces through Recv.
func (c *Client) StreamChat(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	body, err := json.Marshal(c.toWire(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		stream, err := c.connect(ctx, body)
		if err == nil {
			return stream, nil
		}
		lastErr = err

		if !c.retryPolicy.ShouldRetry(attempt, err) {
			break
		}

		delay := c.retryPolicy.CalculateDelay(attempt + 1)
		c.log.Warn().Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("stream connection failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (c *Client) connect(ctx context.Context, body []byte) (llm.Stream, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, chaterrors.NewProvider("execute chat completion request", err)
	}

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, c.statusError(resp.StatusCode, payload)
	}

	return &sseStream{
		resp:   resp,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// Ping verifies the upstream is reachable with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.restyClient.R().SetContext(ctx).Get("/models")
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("ping %s: status %d", c.name, resp.StatusCode())
	}
	return nil
}

func (c *Client) toWire(req llm.ChatRequest) wireRequest {
	messages := make([]wireMessage, 0, len(req.Messages)+1)

	// Inject the system prompt unless the caller already leads with one.
	systemRole := string(uimessage.RoleSystem)
	if req.SystemPrompt != "" && (len(req.Messages) == 0 || req.Messages[0].Role != systemRole) {
		messages = append(messages, wireMessage{Role: systemRole, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	return wireRequest{
		Model:       req.Model,
		Messages:    messages,
		Stream:      true,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func (c *Client) statusError(code int, payload []byte) error {
	message := fmt.Sprintf("%s returned status %d", c.name, code)
	cause := fmt.Errorf("%s: %s", message, string(payload))

	if code == http.StatusTooManyRequests {
		err := chaterrors.NewProvider(message, cause)
		err.Code = chaterrors.ErrCodeQuotaExceeded
		return err
	}
	if code >= 400 && code < 500 {
		// Client-side mistakes do not get retried.
		return chaterrors.NewValidation(chaterrors.ErrCodeInvalidInput, cause.Error())
	}
	return chaterrors.NewProvider(message, cause)
}

// sseStream implements llm.Stream backed by an http.Response body with
// SSE parsing.
type sseStream struct {
	resp   *http.Response
	reader *bufio.Reader
}

func (s *sseStream) Recv() (*llm.Fragment, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read line: %w", err)
		}

		line = strings.TrimSpace(line)

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			return nil, io.EOF
		}

		var delta wireDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			// Skip malformed chunks
			continue
		}
		if len(delta.Choices) == 0 {
			continue
		}

		choice := delta.Choices[0]
		if choice.Delta.ReasoningContent != "" {
			return &llm.Fragment{Kind: llm.FragmentReasoning, Delta: choice.Delta.ReasoningContent}, nil
		}
		if choice.Delta.Content != "" {
			return &llm.Fragment{Kind: llm.FragmentText, Delta: choice.Delta.Content}, nil
		}
		if choice.FinishReason != nil {
			continue
		}
	}
}

func (s *sseStream) Close() error {
	if s.resp != nil && s.resp.Body != nil {
		return s.resp.Body.Close()
	}
	return nil
}
