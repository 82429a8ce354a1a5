package uimessage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ClientPayload is a client-submitted message before normalization.
// Either Text or Parts carries the content; Parts wins when both are set.
type ClientPayload struct {
	ID        string     `json:"id,omitempty"`
	Role      string     `json:"role"`
	Text      string     `json:"text,omitempty"`
	Parts     []Part     `json:"parts,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// FromStored converts a persisted record into a canonical message. The
// content column holds a serialized part array; when it fails to parse,
// the raw payload is kept verbatim as a single text part. Parsing never
// fails the conversion. An invalid role does.
func FromStored(id string, role string, content []byte, createdAt time.Time) (Message, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return Message{}, err
	}

	if id == "" {
		id = uuid.NewString()
	}

	ts := createdAt
	return Message{
		ID:        id,
		Role:      normalizedRole,
		Parts:     parseParts(content),
		CreatedAt: &ts,
	}, nil
}

// FromClient converts a client payload into a canonical message,
// generating an identifier when the client supplied none.
func FromClient(payload ClientPayload) (Message, error) {
	role, err := NormalizeRole(payload.Role)
	if err != nil {
		return Message{}, err
	}

	id := payload.ID
	if id == "" {
		id = uuid.NewString()
	}

	parts := filterKnownParts(payload.Parts)
	if len(parts) == 0 && payload.Text != "" {
		parts = []Part{{Type: PartText, Text: payload.Text}}
	}

	return Message{
		ID:        id,
		Role:      role,
		Parts:     parts,
		CreatedAt: payload.CreatedAt,
	}, nil
}

func parseParts(content []byte) []Part {
	var parts []Part
	if err := json.Unmarshal(content, &parts); err != nil {
		return []Part{{Type: PartText, Text: string(content)}}
	}
	return filterKnownParts(parts)
}

func filterKnownParts(parts []Part) []Part {
	var kept []Part
	for _, p := range parts {
		if p.Type == PartText || p.Type == PartReasoning {
			kept = append(kept, p)
		}
	}
	return kept
}
