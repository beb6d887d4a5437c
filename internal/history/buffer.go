// Package history bounds the rolling conversation window fed to the
// model. The system prompt is never stored here; it is prepended only
// at call time.
package history

import "github.com/nulzo/concierge-bot/pkg/schema"

// Append records one completed exchange (user turn then assistant turn)
// and trims the result to the most recent maxMessages entries. The
// input slice is not mutated.
func Append(h []schema.ChatMessage, userText, assistantText string, maxMessages int) []schema.ChatMessage {
	next := make([]schema.ChatMessage, 0, len(h)+2)
	next = append(next, h...)
	next = append(next,
		schema.ChatMessage{Role: schema.RoleUser, Content: userText},
		schema.ChatMessage{Role: schema.RoleAssistant, Content: assistantText},
	)
	return Trim(next, maxMessages)
}

// Trim keeps only the most recent maxMessages entries in their original
// relative order. maxMessages <= 0 clears the history entirely
// (stateless mode).
func Trim(h []schema.ChatMessage, maxMessages int) []schema.ChatMessage {
	if maxMessages <= 0 {
		return nil
	}
	if len(h) <= maxMessages {
		return h
	}
	return h[len(h)-maxMessages:]
}

// BuildMessages assembles the sequence sent upstream:
// [system] + history + [new user turn].
func BuildMessages(systemPrompt string, h []schema.ChatMessage, userText string) []schema.ChatMessage {
	messages := make([]schema.ChatMessage, 0, len(h)+2)
	messages = append(messages, schema.ChatMessage{Role: schema.RoleSystem, Content: systemPrompt})
	messages = append(messages, h...)
	messages = append(messages, schema.ChatMessage{Role: schema.RoleUser, Content: userText})
	return messages
}
