package domain

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation. Messages are immutable once
// appended.
type Message struct {
	ID         string       `json:"id"`
	Role       Role         `json:"role"`
	Content    string       `json:"content"`
	Language   LanguageCode `json:"language,omitempty"`
	Intent     string       `json:"intent,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// HistoryEntry is the shape sent as conversation_history in chat requests.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History converts the most recent n messages into chat history entries.
// n <= 0 yields an empty, non-nil slice.
func History(messages []Message, n int) []HistoryEntry {
	out := make([]HistoryEntry, 0, max(n, 0))
	if n <= 0 {
		return out
	}
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	for _, m := range messages {
		out = append(out, HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return out
}
