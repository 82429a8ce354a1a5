package llm

import "context"

// FragmentKind tags one incremental unit of model output.
type FragmentKind string

const (
	FragmentText      FragmentKind = "text"
	FragmentReasoning FragmentKind = "reasoning"
)

// Fragment is one incremental unit of model output emitted during streaming.
type Fragment struct {
	Kind  FragmentKind `json:"kind"`
	Delta string       `json:"delta"`
}

// ChatMessage is a single turn handed to the provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries everything a provider needs for one completion.
type ChatRequest struct {
	Model        string        `json:"model"`
	Messages     []ChatMessage `json:"messages"`
	SystemPrompt string        `json:"-"`
	Temperature  *float64      `json:"temperature,omitempty"`
	MaxTokens    *int          `json:"max_tokens,omitempty"`
}

// Provider produces a lazy sequence of output fragments for a model call.
// The returned stream is finite and not restartable; a new StreamChat call
// is required to retry.
type Provider interface {
	StreamChat(ctx context.Context, req ChatRequest) (Stream, error)
}

// Stream abstracts an SSE or chunked response from a model provider.
type Stream interface {
	Recv() (*Fragment, error)
	Close() error
}
