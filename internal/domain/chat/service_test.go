package chat_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"chat-backend/internal/domain/chat"
	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/resume"
	"chat-backend/internal/domain/status"
	"chat-backend/internal/domain/stream"
	"chat-backend/internal/domain/uimessage"
)

// MockConversationRepository is a func-field mock of chat.ConversationRepository.
type MockConversationRepository struct {
	CreateFunc         func(ctx context.Context, conversation *chat.Conversation) error
	FindByPublicIDFunc func(ctx context.Context, publicID string) (*chat.Conversation, error)
	UpdateFunc         func(ctx context.Context, conversation *chat.Conversation) error

	created []*chat.Conversation
	updated []*chat.Conversation
}

func (m *MockConversationRepository) Create(ctx context.Context, conversation *chat.Conversation) error {
	m.created = append(m.created, conversation)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, conversation)
	}
	conversation.ID = uint(len(m.created))
	return nil
}

func (m *MockConversationRepository) FindByPublicID(ctx context.Context, publicID string) (*chat.Conversation, error) {
	if m.FindByPublicIDFunc != nil {
		return m.FindByPublicIDFunc(ctx, publicID)
	}
	return nil, nil
}

func (m *MockConversationRepository) Update(ctx context.Context, conversation *chat.Conversation) error {
	m.updated = append(m.updated, conversation)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, conversation)
	}
	return nil
}

type scriptedStream struct {
	fragments []llm.Fragment
	pos       int
}

func (s *scriptedStream) Recv() (*llm.Fragment, error) {
	if s.pos >= len(s.fragments) {
		return nil, io.EOF
	}
	f := s.fragments[s.pos]
	s.pos++
	return &f, nil
}

func (s *scriptedStream) Close() error { return nil }

type scriptedProvider struct {
	fragments []llm.Fragment
	lastReq   llm.ChatRequest
}

func (p *scriptedProvider) StreamChat(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	p.lastReq = req
	return &scriptedStream{fragments: p.fragments}, nil
}

type fixture struct {
	convs    *MockConversationRepository
	msgs     *MockMessageRepository
	provider *scriptedProvider
	service  *chat.ServiceImpl
}

func newFixture(convs *MockConversationRepository, msgs *MockMessageRepository, fragments []llm.Fragment) *fixture {
	provider := &scriptedProvider{fragments: fragments}

	registry := llm.NewRegistry()
	registry.Register("gpt-", provider)

	service := chat.NewService(
		convs,
		msgs,
		chat.NewReconciler(msgs, zerolog.Nop()),
		stream.NewOrchestrator(registry, zerolog.Nop()),
		stream.NewManager(zerolog.Nop()),
		resume.NewTracker(0),
		llm.NewCatalog(map[string]bool{"openai": true, "google": true}),
		nil,
		"You are a helpful assistant.",
		zerolog.Nop(),
	)

	return &fixture{convs: convs, msgs: msgs, provider: provider, service: service}
}

func storedUserRow(conversationID uint, publicID, text string) chat.Message {
	return chat.Message{
		PublicID:       publicID,
		ConversationID: conversationID,
		Role:           uimessage.RoleUser,
		Content:        []byte(`[{"type":"text","text":"` + text + `"}]`),
	}
}

func TestService_StreamChatNewConversation(t *testing.T) {
	f := newFixture(&MockConversationRepository{}, &MockMessageRepository{}, []llm.Fragment{
		{Kind: llm.FragmentText, Delta: "Go is "},
		{Kind: llm.FragmentText, Delta: "a language."},
	})

	result, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		UserID:   "user-1",
		Model:    "gpt-4-turbo",
		Messages: []uimessage.Message{userMessage("u-1", "what is Go?")},
	})
	if err != nil {
		t.Fatalf("StreamChat() error: %v", err)
	}
	if result.Status != status.StatusCompleted {
		t.Errorf("status = %v, want completed", result.Status)
	}
	if got := result.Message.Text(); got != "Go is a language." {
		t.Errorf("assistant text = %q", got)
	}

	if len(f.convs.created) != 1 {
		t.Fatalf("expected a new conversation, got %d", len(f.convs.created))
	}
	if len(f.msgs.inserted) != 1 || len(f.msgs.inserted[0]) != 2 {
		t.Fatalf("expected one batch with user and assistant turns, got %+v", f.msgs.inserted)
	}
	if f.convs.created[0].Model != "gpt-4-turbo" {
		t.Errorf("conversation model = %q, want the requested model", f.convs.created[0].Model)
	}
	if m := f.msgs.inserted[0][1].Model; m == nil || *m != "gpt-4-turbo" {
		t.Errorf("assistant row model = %v, want the producing model", m)
	}

	// First user turn also titles the conversation.
	if len(f.convs.updated) != 1 {
		t.Fatalf("expected a title update, got %d", len(f.convs.updated))
	}
	if title := f.convs.updated[0].Title; title == nil || *title != "what is Go?" {
		t.Errorf("title = %v, want the user text", title)
	}

	// System prompt leads the provider payload.
	if f.provider.lastReq.Messages[0].Role != "system" {
		t.Errorf("first provider message role = %q, want system", f.provider.lastReq.Messages[0].Role)
	}
}

func TestService_StreamChatModelRequired(t *testing.T) {
	f := newFixture(&MockConversationRepository{}, &MockMessageRepository{}, nil)

	_, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		Messages: []uimessage.Message{userMessage("u-1", "hi")},
	})
	if !chaterrors.IsValidation(err) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestService_StreamChatUnsupportedModelCreatesNothing(t *testing.T) {
	f := newFixture(&MockConversationRepository{}, &MockMessageRepository{}, nil)

	_, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		UserID:   "user-1",
		Model:    "claude-3-opus",
		Messages: []uimessage.Message{userMessage("u-1", "hi")},
	})
	if !chaterrors.IsUnsupportedModel(err) {
		t.Fatalf("error = %v, want unsupported model", err)
	}
	if len(f.convs.created) != 0 {
		t.Errorf("created %d conversations, want none for an unroutable model", len(f.convs.created))
	}
}

func TestService_StreamChatConversationNotFound(t *testing.T) {
	f := newFixture(&MockConversationRepository{}, &MockMessageRepository{}, nil)

	_, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		ConversationPublicID: "conv_missing",
		Model:                "gpt-4-turbo",
		Messages:             []uimessage.Message{userMessage("u-1", "hi")},
	})
	if !errors.Is(err, chat.ErrConversationNotFound) {
		t.Errorf("error = %v, want ErrConversationNotFound", err)
	}
}

func TestService_StreamChatReconcilesStoredHistory(t *testing.T) {
	conv := &chat.Conversation{ID: 9, PublicID: "conv_9", Title: strPtr("existing")}
	convs := &MockConversationRepository{
		FindByPublicIDFunc: func(ctx context.Context, publicID string) (*chat.Conversation, error) {
			return conv, nil
		},
	}
	msgs := &MockMessageRepository{
		ListByConversationIDFunc: func(ctx context.Context, conversationID uint) ([]chat.Message, error) {
			return []chat.Message{storedUserRow(9, "u-0", "earlier question")}, nil
		},
		FindByPublicIDFunc: func(ctx context.Context, conversationID uint, publicID string) (*chat.Message, error) {
			if publicID == "u-0" {
				return &chat.Message{PublicID: "u-0"}, nil
			}
			return nil, nil
		},
	}
	f := newFixture(convs, msgs, []llm.Fragment{{Kind: llm.FragmentText, Delta: "answer"}})

	// Client replays the stored turn alongside the new one.
	result, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		ConversationPublicID: "conv_9",
		Model:                "gpt-4-turbo",
		Messages: []uimessage.Message{
			userMessage("u-0", "earlier question"),
			userMessage("u-1", "new question"),
		},
	})
	if err != nil {
		t.Fatalf("StreamChat() error: %v", err)
	}
	if result.Status != status.StatusCompleted {
		t.Fatalf("status = %v", result.Status)
	}

	// system + deduplicated history + new turn.
	roles := make([]string, 0, len(f.provider.lastReq.Messages))
	for _, m := range f.provider.lastReq.Messages {
		roles = append(roles, m.Role)
	}
	if strings.Join(roles, ",") != "system,user,user" {
		t.Errorf("provider roles = %v, want system,user,user", roles)
	}

	// Only the new user turn and the assistant turn get written.
	batch := f.msgs.inserted[0]
	if len(batch) != 2 {
		t.Fatalf("batch = %+v, want new user + assistant", batch)
	}
	if batch[0].PublicID != "u-1" {
		t.Errorf("persisted user turn = %q, want u-1", batch[0].PublicID)
	}

	// Existing title survives.
	if len(f.convs.updated) != 0 {
		t.Errorf("titled conversation should not be re-titled")
	}
}

func TestService_StreamChatPersistenceFailureKeepsResult(t *testing.T) {
	msgs := &MockMessageRepository{
		BulkInsertFunc: func(ctx context.Context, messages []chat.Message) error {
			return errors.New("disk full")
		},
	}
	f := newFixture(&MockConversationRepository{}, msgs, []llm.Fragment{{Kind: llm.FragmentText, Delta: "answer"}})

	result, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		Model:    "gpt-4-turbo",
		Messages: []uimessage.Message{userMessage("u-1", "hi")},
	})
	if err != nil {
		t.Fatalf("StreamChat() should not fail on storage trouble, got %v", err)
	}
	if result.Status != status.StatusCompleted {
		t.Errorf("status = %v, want completed", result.Status)
	}
}

func TestService_ResumeRequiresPendingUserTurn(t *testing.T) {
	conv := &chat.Conversation{ID: 3, PublicID: "conv_3"}
	convs := &MockConversationRepository{
		FindByPublicIDFunc: func(ctx context.Context, publicID string) (*chat.Conversation, error) {
			return conv, nil
		},
	}
	msgs := &MockMessageRepository{
		ListByConversationIDFunc: func(ctx context.Context, conversationID uint) ([]chat.Message, error) {
			return []chat.Message{
				storedUserRow(3, "u-0", "question"),
				{
					PublicID:       "a-0",
					ConversationID: 3,
					Role:           uimessage.RoleAssistant,
					Content:        []byte(`[{"type":"text","text":"answered"}]`),
				},
			}, nil
		},
	}
	f := newFixture(convs, msgs, nil)

	_, err := f.service.StreamChat(context.Background(), chat.StreamParams{
		ConversationPublicID: "conv_3",
		Model:                "gpt-4-turbo",
		Resume:               true,
	})
	if !errors.Is(err, chat.ErrResumeNotEligible) {
		t.Errorf("error = %v, want ErrResumeNotEligible", err)
	}
}

func TestService_ResumeConsumedOnce(t *testing.T) {
	conv := &chat.Conversation{ID: 3, PublicID: "conv_3", Title: strPtr("t")}
	convs := &MockConversationRepository{
		FindByPublicIDFunc: func(ctx context.Context, publicID string) (*chat.Conversation, error) {
			return conv, nil
		},
	}
	msgs := &MockMessageRepository{
		ListByConversationIDFunc: func(ctx context.Context, conversationID uint) ([]chat.Message, error) {
			return []chat.Message{storedUserRow(3, "u-0", "pending question")}, nil
		},
	}
	f := newFixture(convs, msgs, []llm.Fragment{{Kind: llm.FragmentText, Delta: "resumed"}})

	params := chat.StreamParams{
		ConversationPublicID: "conv_3",
		Model:                "gpt-4-turbo",
		Resume:               true,
	}

	if _, err := f.service.StreamChat(context.Background(), params); err != nil {
		t.Fatalf("first resume should run: %v", err)
	}
	if _, err := f.service.StreamChat(context.Background(), params); !errors.Is(err, chat.ErrResumeNotEligible) {
		t.Errorf("second resume error = %v, want ErrResumeNotEligible", err)
	}
}

func TestService_CancelStreamUnknownID(t *testing.T) {
	f := newFixture(&MockConversationRepository{}, &MockMessageRepository{}, nil)

	if f.service.CancelStream("no-such-stream") {
		t.Error("cancel of unknown stream should report false")
	}
}

func TestService_GetConversation(t *testing.T) {
	conv := &chat.Conversation{ID: 5, PublicID: "conv_5"}
	convs := &MockConversationRepository{
		FindByPublicIDFunc: func(ctx context.Context, publicID string) (*chat.Conversation, error) {
			if publicID == "conv_5" {
				return conv, nil
			}
			return nil, nil
		},
	}
	msgs := &MockMessageRepository{
		ListByConversationIDFunc: func(ctx context.Context, conversationID uint) ([]chat.Message, error) {
			return []chat.Message{storedUserRow(5, "u-0", "hi")}, nil
		},
	}
	f := newFixture(convs, msgs, nil)

	got, history, err := f.service.GetConversation(context.Background(), "conv_5")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.PublicID != "conv_5" {
		t.Errorf("conversation = %+v", got)
	}
	if len(history) != 1 || history[0].Text() != "hi" {
		t.Errorf("history = %+v, want the stored turn", history)
	}

	if _, _, err := f.service.GetConversation(context.Background(), "conv_nope"); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Errorf("error = %v, want ErrConversationNotFound", err)
	}
}

func TestService_CreateConversationSeedsFirstTurn(t *testing.T) {
	convs := &MockConversationRepository{}
	msgs := &MockMessageRepository{}
	f := newFixture(convs, msgs, nil)

	first := userMessage("msg-1", "Plan me a trip to Osaka")
	conv, err := f.service.CreateConversation(context.Background(), "user-1", "gpt-4-turbo", nil, &first)
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	if conv.Title == nil || *conv.Title != "Plan me a trip to Osaka" {
		t.Errorf("title = %v, want derived from first turn", conv.Title)
	}
	if conv.Model != "gpt-4-turbo" {
		t.Errorf("model = %q, want the requested model", conv.Model)
	}
	if len(msgs.inserted) != 1 || len(msgs.inserted[0]) != 1 {
		t.Fatalf("inserted = %+v, want one seeded row", msgs.inserted)
	}
	if row := msgs.inserted[0][0]; row.Role != uimessage.RoleUser || row.PublicID != "msg-1" {
		t.Errorf("seeded row = %+v", row)
	}
}

func TestService_CreateConversationExplicitTitle(t *testing.T) {
	convs := &MockConversationRepository{}
	msgs := &MockMessageRepository{}
	f := newFixture(convs, msgs, nil)

	conv, err := f.service.CreateConversation(context.Background(), "user-1", "gpt-4-turbo", strPtr("Trip notes"), nil)
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	if conv.Title == nil || *conv.Title != "Trip notes" {
		t.Errorf("title = %v, want Trip notes", conv.Title)
	}
	if len(msgs.inserted) != 0 {
		t.Errorf("inserted = %+v, want no seeded rows", msgs.inserted)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short text", "hello there", "hello there"},
		{"trimmed", "  hello  ", "hello"},
		{"truncated", strings.Repeat("a", 60), strings.Repeat("a", 50) + "..."},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chat.DeriveTitle(tt.text); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
