// Package uimessage defines the canonical in-memory message representation
// used for merging history with live stream output.
package uimessage

import (
	"encoding/json"
	"strings"
	"time"

	chaterrors "chat-backend/internal/domain/errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType tags a message part variant.
type PartType string

const (
	PartText      PartType = "text"
	PartReasoning PartType = "reasoning"
)

// Part is one unit of message content, either model output text or
// intermediate reasoning. Parts preserve production order.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text"`
}

// Message is the canonical merge unit. It is not persisted verbatim;
// the storage layer serializes Parts into a JSON content column.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Parts     []Part     `json:"parts"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// NormalizeRole lower-cases the raw role and validates it against the
// three-value enum.
func NormalizeRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	case RoleSystem:
		return RoleSystem, nil
	default:
		return "", chaterrors.NewValidation(chaterrors.ErrCodeInvalidRole, "role must be one of user, assistant, system")
	}
}

// HasContent reports whether the message carries anything worth keeping:
// at least one non-blank text part or a reasoning part.
func (m Message) HasContent() bool {
	for _, p := range m.Parts {
		switch p.Type {
		case PartText:
			if strings.TrimSpace(p.Text) != "" {
				return true
			}
		case PartReasoning:
			return true
		}
	}
	return false
}

// Text joins all text parts into one string, skipping reasoning.
func (m Message) Text() string {
	var parts []string
	for _, p := range m.Parts {
		if p.Type == PartText && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, " ")
}

// SerializeParts renders the part array into its canonical stored form.
func (m Message) SerializeParts() ([]byte, error) {
	parts := m.Parts
	if parts == nil {
		parts = []Part{}
	}
	return json.Marshal(parts)
}
