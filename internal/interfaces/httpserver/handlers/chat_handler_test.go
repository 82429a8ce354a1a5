package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/domain/chat"
	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/status"
	"chat-backend/internal/domain/stream"
	"chat-backend/internal/domain/uimessage"
	"chat-backend/internal/interfaces/httpserver/handlers"
)

// MockChatService is a mock implementation of chat.Service for testing.
type MockChatService struct {
	CreateConversationFunc func(ctx context.Context, userID, model string, title *string, first *uimessage.Message) (*chat.Conversation, error)
	GetConversationFunc    func(ctx context.Context, publicID string) (*chat.Conversation, []uimessage.Message, error)
	StreamChatFunc         func(ctx context.Context, params chat.StreamParams) (*stream.Result, error)
	CancelStreamFunc       func(streamID string) bool
}

func (m *MockChatService) CreateConversation(ctx context.Context, userID, model string, title *string, first *uimessage.Message) (*chat.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, userID, model, title, first)
	}
	return nil, nil
}

func (m *MockChatService) GetConversation(ctx context.Context, publicID string) (*chat.Conversation, []uimessage.Message, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, publicID)
	}
	return nil, nil, nil
}

func (m *MockChatService) StreamChat(ctx context.Context, params chat.StreamParams) (*stream.Result, error) {
	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, params)
	}
	return &stream.Result{Status: status.StatusCompleted}, nil
}

func (m *MockChatService) CancelStream(streamID string) bool {
	if m.CancelStreamFunc != nil {
		return m.CancelStreamFunc(streamID)
	}
	return false
}

func setupChatTestRouter(handler *handlers.ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/chat", handler.Stream)
	r.POST("/v1/chat/:stream_id/cancel", handler.Cancel)
	return r
}

func postChat(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/v1/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatHandler_Stream(t *testing.T) {
	mockService := &MockChatService{
		StreamChatFunc: func(ctx context.Context, params chat.StreamParams) (*stream.Result, error) {
			if params.Model != "gpt-4" {
				t.Errorf("Expected model gpt-4, got %q", params.Model)
			}
			if len(params.Messages) != 1 || params.Messages[0].Text() != "hello" {
				t.Errorf("Unexpected messages: %+v", params.Messages)
			}

			observer := params.Observer
			if starter, ok := observer.(chat.StreamStartObserver); ok {
				starter.OnStarted("stream-1", "conv_abc")
			}
			observer.OnFragment(llm.Fragment{Kind: llm.FragmentText, Delta: "Hi"})
			observer.OnFragment(llm.Fragment{Kind: llm.FragmentText, Delta: " there"})

			msg := uimessage.Message{
				ID:    "msg-1",
				Role:  uimessage.RoleAssistant,
				Parts: []uimessage.Part{{Type: uimessage.PartText, Text: "Hi there"}},
			}
			observer.OnCompleted(msg)
			return &stream.Result{Status: status.StatusCompleted, Message: msg}, nil
		},
	}

	handler := handlers.NewChatHandler(mockService, zerolog.Nop())
	router := setupChatTestRouter(handler)

	w := postChat(router, `{"model":"gpt-4","messages":[{"role":"user","text":"hello"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	body := w.Body.String()
	for _, event := range []string{"event: started", "event: fragment", "event: done"} {
		if !strings.Contains(body, event) {
			t.Errorf("Expected body to contain %q, got:\n%s", event, body)
		}
	}
	if !strings.Contains(body, `"stream_id":"stream-1"`) {
		t.Errorf("Expected stream id in events, got:\n%s", body)
	}
	if !strings.Contains(body, `"delta":"Hi"`) {
		t.Errorf("Expected first delta, got:\n%s", body)
	}
}

func TestChatHandler_Stream_ModelRequired(t *testing.T) {
	handler := handlers.NewChatHandler(&MockChatService{}, zerolog.Nop())
	router := setupChatTestRouter(handler)

	w := postChat(router, `{"messages":[{"role":"user","text":"hello"}]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestChatHandler_Stream_InvalidRole(t *testing.T) {
	handler := handlers.NewChatHandler(&MockChatService{}, zerolog.Nop())
	router := setupChatTestRouter(handler)

	w := postChat(router, `{"model":"gpt-4","messages":[{"role":"robot","text":"hello"}]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if payload["code"] != chaterrors.ErrCodeInvalidRole {
		t.Errorf("Expected code %s, got %s", chaterrors.ErrCodeInvalidRole, payload["code"])
	}
}

func TestChatHandler_Stream_ConversationNotFound(t *testing.T) {
	mockService := &MockChatService{
		StreamChatFunc: func(ctx context.Context, params chat.StreamParams) (*stream.Result, error) {
			return nil, chat.ErrConversationNotFound
		},
	}

	handler := handlers.NewChatHandler(mockService, zerolog.Nop())
	router := setupChatTestRouter(handler)

	w := postChat(router, `{"model":"gpt-4","conversation_id":"conv_missing","messages":[{"role":"user","text":"hi"}]}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestChatHandler_Stream_ResumeConflict(t *testing.T) {
	mockService := &MockChatService{
		StreamChatFunc: func(ctx context.Context, params chat.StreamParams) (*stream.Result, error) {
			if !params.Resume {
				t.Error("Expected resume flag to be set")
			}
			return nil, chat.ErrResumeNotEligible
		},
	}

	handler := handlers.NewChatHandler(mockService, zerolog.Nop())
	router := setupChatTestRouter(handler)

	w := postChat(router, `{"model":"gpt-4","conversation_id":"conv_abc","resume":true,"messages":[]}`)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestChatHandler_Stream_FailureAfterStart(t *testing.T) {
	providerErr := chaterrors.NewProvider("upstream closed the stream", errors.New("boom"))
	mockService := &MockChatService{
		StreamChatFunc: func(ctx context.Context, params chat.StreamParams) (*stream.Result, error) {
			if starter, ok := params.Observer.(chat.StreamStartObserver); ok {
				starter.OnStarted("stream-9", "conv_abc")
			}
			params.Observer.OnFailed(providerErr)
			return nil, providerErr
		},
	}

	handler := handlers.NewChatHandler(mockService, zerolog.Nop())
	router := setupChatTestRouter(handler)

	w := postChat(router, `{"model":"gpt-4","messages":[{"role":"user","text":"hi"}]}`)

	// SSE already began so the failure arrives as a terminal event, not a JSON body.
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Errorf("Expected stream.error event, got:\n%s", body)
	}
	if !strings.Contains(body, chaterrors.ErrCodeProviderFailure) {
		t.Errorf("Expected provider failure code, got:\n%s", body)
	}
	if strings.Count(body, "event: error") != 1 {
		t.Errorf("Expected exactly one error event, got:\n%s", body)
	}
}

func TestChatHandler_Cancel(t *testing.T) {
	mockService := &MockChatService{
		CancelStreamFunc: func(streamID string) bool {
			return streamID == "stream-1"
		},
	}

	handler := handlers.NewChatHandler(mockService, zerolog.Nop())
	router := setupChatTestRouter(handler)

	req, _ := http.NewRequest("POST", "/v1/chat/stream-1/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}

	req, _ = http.NewRequest("POST", "/v1/chat/stream-2/cancel", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
