package uimessage

import "sort"

// Merge combines previously loaded history with newly arrived or streamed
// messages into one sequence with unique identifiers. A later occurrence of
// an identifier overwrites an earlier one entirely; parts are never merged
// across the two versions. Messages without content are excluded, except
// that live messages are kept while the stream is still active, since a
// streaming assistant message may be transiently empty before its first
// fragment arrives.
//
// Output order is by creation timestamp when both sides of a comparison
// carry one, otherwise merge-insertion order, so live updates keep their
// position relative to untimestamped neighbours.
func Merge(history, live []Message, streamActive bool) []Message {
	byID := make(map[string]Message)
	var order []string

	upsert := func(msg Message) {
		if msg.ID == "" {
			return
		}
		if _, seen := byID[msg.ID]; !seen {
			order = append(order, msg.ID)
		}
		byID[msg.ID] = msg
	}

	for _, msg := range history {
		if msg.HasContent() {
			upsert(msg)
		}
	}

	// Live messages take priority over stored ones to reflect in-flight
	// updates; they overwrite any stored message with the same identifier.
	for _, msg := range live {
		if msg.HasContent() || streamActive {
			upsert(msg)
		}
	}

	merged := make([]Message, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].CreatedAt, merged[j].CreatedAt
		if a == nil || b == nil {
			return false
		}
		return a.Before(*b)
	})

	return merged
}
