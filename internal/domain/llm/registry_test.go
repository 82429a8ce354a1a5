package llm_test

import (
	"context"
	"testing"

	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) StreamChat(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	return nil, nil
}

func TestRegistry_Resolve(t *testing.T) {
	openai := &stubProvider{name: "openai"}
	google := &stubProvider{name: "google"}

	registry := llm.NewRegistry()
	registry.Register("gpt-", openai)
	registry.Register("gemini-", google)

	tests := []struct {
		name    string
		modelID string
		want    *stubProvider
	}{
		{"gpt model", "gpt-4-turbo", openai},
		{"gpt legacy", "gpt-3.5-turbo", openai},
		{"gemini model", "gemini-1.5-pro-latest", google},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.Resolve(tt.modelID)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.modelID, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) routed to %v, want %v", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestRegistry_ResolveUnsupported(t *testing.T) {
	registry := llm.NewRegistry()
	registry.Register("gpt-", &stubProvider{})

	_, err := registry.Resolve("claude-3-opus")
	if !chaterrors.IsUnsupportedModel(err) {
		t.Errorf("Resolve() error = %v, want unsupported-model error", err)
	}
}

func TestRegistry_ResolveEmptyModel(t *testing.T) {
	registry := llm.NewRegistry()

	_, err := registry.Resolve("  ")
	if !chaterrors.IsValidation(err) {
		t.Errorf("Resolve() error = %v, want validation error", err)
	}
}

func TestTrimMessagesToFitContext_KeepsSystemAndUser(t *testing.T) {
	long := make([]byte, 4000)
	for i := range long {
		long[i] = 'a'
	}

	messages := []llm.ChatMessage{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: string(long)},
		{Role: "assistant", Content: string(long)},
		{Role: "user", Content: string(long)},
		{Role: "assistant", Content: string(long)},
		{Role: "user", Content: "latest question"},
	}

	result := llm.TrimMessagesToFitContext(messages, 2000)

	if result.TrimmedCount != 2 {
		t.Errorf("TrimmedCount = %d, want 2 (both assistant turns)", result.TrimmedCount)
	}
	for _, msg := range result.Messages {
		if msg.Role == "assistant" {
			t.Error("assistant turns should have been trimmed first")
		}
	}
	if result.Messages[0].Role != "system" {
		t.Error("system prompt must survive trimming")
	}
	if result.Messages[len(result.Messages)-1].Content != "latest question" {
		t.Error("latest user turn must survive trimming")
	}
}

func TestTrimMessagesToFitContext_NoTrimWhenWithinBudget(t *testing.T) {
	messages := []llm.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}

	result := llm.TrimMessagesToFitContext(messages, 128000)
	if result.TrimmedCount != 0 {
		t.Errorf("TrimmedCount = %d, want 0", result.TrimmedCount)
	}
	if len(result.Messages) != 2 {
		t.Errorf("Messages length = %d, want 2", len(result.Messages))
	}
}

func TestCatalog_FiltersUnconfiguredProviders(t *testing.T) {
	catalog := llm.NewCatalog(map[string]bool{"openai": true})

	for _, m := range catalog.Filter("", false) {
		if m.Provider != "openai" {
			t.Errorf("catalog leaked model %q from unconfigured provider %q", m.ID, m.Provider)
		}
	}
	if len(catalog.Filter("google", false)) != 0 {
		t.Error("google models should be filtered out without a key")
	}
	if len(catalog.Filter("openai", true)) == 0 {
		t.Error("expected tool-capable openai models")
	}
}
