package llm

import "unicode/utf8"

const (
	// DefaultContextLength is used when model context length is unknown.
	DefaultContextLength = 128000

	// TokenEstimateRatio estimates ~4 characters per token (conservative estimate).
	TokenEstimateRatio = 4

	// SafetyMarginRatio reserves space for the response and overhead (20% margin).
	SafetyMarginRatio = 0.80
)

// EstimateTokenCount provides a rough estimate of token count for a message.
// Uses character count / 4 as a conservative approximation.
func EstimateTokenCount(content string) int {
	return utf8.RuneCountInString(content) / TokenEstimateRatio
}

// EstimateMessagesTokenCount estimates total tokens across all messages.
func EstimateMessagesTokenCount(messages []ChatMessage) int {
	total := 0
	for _, msg := range messages {
		// Overhead for role and structure (~10 tokens per message)
		total += 10
		total += EstimateTokenCount(msg.Content)
	}
	return total
}

// TrimResult contains the result of trimming messages.
type TrimResult struct {
	Messages        []ChatMessage
	TrimmedCount    int
	EstimatedTokens int
}

// TrimMessagesToFitContext removes the oldest assistant messages to fit
// within the context length limit. System prompts and user messages are
// never removed.
func TrimMessagesToFitContext(messages []ChatMessage, contextLength int) TrimResult {
	if contextLength <= 0 {
		contextLength = DefaultContextLength
	}
	maxTokens := int(float64(contextLength) * SafetyMarginRatio)

	currentTokens := EstimateMessagesTokenCount(messages)
	if currentTokens <= maxTokens {
		return TrimResult{Messages: messages, EstimatedTokens: currentTokens}
	}

	kept := make([]ChatMessage, len(messages))
	copy(kept, messages)
	trimmed := 0

	for currentTokens > maxTokens {
		removed := false
		for i, msg := range kept {
			if msg.Role != "assistant" {
				continue
			}
			kept = append(kept[:i], kept[i+1:]...)
			trimmed++
			removed = true
			break
		}
		if !removed {
			break
		}
		currentTokens = EstimateMessagesTokenCount(kept)
	}

	return TrimResult{Messages: kept, TrimmedCount: trimmed, EstimatedTokens: currentTokens}
}
