package uimessage_test

import (
	"testing"
	"time"

	chaterrors "chat-backend/internal/domain/errors"
	"chat-backend/internal/domain/uimessage"
)

func TestFromStored_PartArray(t *testing.T) {
	content := []byte(`[{"type":"text","text":"hello"},{"type":"reasoning","text":"thinking about it"}]`)
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	msg, err := uimessage.FromStored("msg_1", "ASSISTANT", content, created)
	if err != nil {
		t.Fatalf("FromStored() error: %v", err)
	}

	if msg.ID != "msg_1" {
		t.Errorf("ID = %q, want msg_1", msg.ID)
	}
	if msg.Role != uimessage.RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if len(msg.Parts) != 2 {
		t.Fatalf("Parts length = %d, want 2", len(msg.Parts))
	}
	if msg.Parts[0].Type != uimessage.PartText || msg.Parts[0].Text != "hello" {
		t.Errorf("first part = %+v, want text/hello", msg.Parts[0])
	}
	if msg.Parts[1].Type != uimessage.PartReasoning {
		t.Errorf("second part type = %q, want reasoning", msg.Parts[1].Type)
	}
	if msg.CreatedAt == nil || !msg.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", msg.CreatedAt, created)
	}
}

func TestFromStored_UnparseableContentDegradesToText(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain text", "just a raw reply"},
		{"truncated json", `[{"type":"text","te`},
		{"json object not array", `{"type":"text","text":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := uimessage.FromStored("msg_2", "user", []byte(tt.content), time.Now())
			if err != nil {
				t.Fatalf("FromStored() error: %v", err)
			}
			if len(msg.Parts) != 1 {
				t.Fatalf("Parts length = %d, want exactly 1", len(msg.Parts))
			}
			if msg.Parts[0].Type != uimessage.PartText {
				t.Errorf("part type = %q, want text", msg.Parts[0].Type)
			}
			if msg.Parts[0].Text != tt.content {
				t.Errorf("part text = %q, want raw content verbatim", msg.Parts[0].Text)
			}
		})
	}
}

func TestFromStored_InvalidRole(t *testing.T) {
	_, err := uimessage.FromStored("msg_3", "moderator", []byte(`[]`), time.Now())
	if !chaterrors.IsValidation(err) {
		t.Errorf("FromStored() error = %v, want validation error", err)
	}
}

func TestFromClient_GeneratesID(t *testing.T) {
	msg, err := uimessage.FromClient(uimessage.ClientPayload{Role: "user", Text: "explain recursion"})
	if err != nil {
		t.Fatalf("FromClient() error: %v", err)
	}
	if msg.ID == "" {
		t.Error("FromClient() should generate an identifier when none is supplied")
	}

	again, err := uimessage.FromClient(uimessage.ClientPayload{Role: "user", Text: "explain recursion"})
	if err != nil {
		t.Fatalf("FromClient() error: %v", err)
	}
	if msg.ID == again.ID {
		t.Error("generated identifiers should be unique")
	}
}

func TestFromClient_PartsWinOverText(t *testing.T) {
	msg, err := uimessage.FromClient(uimessage.ClientPayload{
		ID:    "cli_1",
		Role:  "User",
		Text:  "ignored",
		Parts: []uimessage.Part{{Type: uimessage.PartText, Text: "kept"}},
	})
	if err != nil {
		t.Fatalf("FromClient() error: %v", err)
	}
	if len(msg.Parts) != 1 || msg.Parts[0].Text != "kept" {
		t.Errorf("Parts = %+v, want the explicit part array", msg.Parts)
	}
	if msg.Role != uimessage.RoleUser {
		t.Errorf("Role = %q, want lower-cased user", msg.Role)
	}
}

func TestFromClient_InvalidRole(t *testing.T) {
	_, err := uimessage.FromClient(uimessage.ClientPayload{Role: "bot", Text: "hi"})
	if !chaterrors.IsValidation(err) {
		t.Errorf("FromClient() error = %v, want validation error", err)
	}
}

func TestMessage_HasContent(t *testing.T) {
	tests := []struct {
		name     string
		parts    []uimessage.Part
		expected bool
	}{
		{"nil parts", nil, false},
		{"blank text", []uimessage.Part{{Type: uimessage.PartText, Text: "   "}}, false},
		{"non-empty text", []uimessage.Part{{Type: uimessage.PartText, Text: "hi"}}, true},
		{"reasoning only", []uimessage.Part{{Type: uimessage.PartReasoning, Text: "because"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := uimessage.Message{ID: "m", Role: uimessage.RoleUser, Parts: tt.parts}
			if got := msg.HasContent(); got != tt.expected {
				t.Errorf("HasContent() = %v, want %v", got, tt.expected)
			}
		})
	}
}
