package models

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is append-only; the 10-second duplicate-suppression window is
// enforced by the repository's Insert, not by this type.
type Message struct {
	ID         string
	SessionID  string
	Role       MessageRole
	Content    string
	Timestamp  time.Time

	// Optional latencies, populated by the session orchestrator for assistant
	// messages: time from user-turn-finalized to first LLM token, and from
	// first token to TTS audio start.
	LLMLatencyMs *int64
	TTSLatencyMs *int64
}

func NewMessage(id, sessionID string, role MessageRole, content string) *Message {
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// DuplicateOf reports whether m is a duplicate of other under the 10-second
// suppression window: same session, role and content, and other's timestamp
// is within the last 10 seconds relative to now.
func (m *Message) DuplicateOf(other *Message, now time.Time) bool {
	if m.SessionID != other.SessionID || m.Role != other.Role || m.Content != other.Content {
		return false
	}
	return !other.Timestamp.Before(now.Add(-10 * time.Second))
}
