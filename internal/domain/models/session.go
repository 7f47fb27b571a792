package models

import "time"

type SessionType string

const (
	SessionTypeWeb       SessionType = "web"
	SessionTypeDiscord   SessionType = "discord"
	SessionTypeExtension SessionType = "extension"
)

// SessionState is the orchestrator's run-state (C9), tracked alongside the
// persisted Session row but not itself persisted.
type SessionState string

const (
	SessionStateIdle       SessionState = "IDLE"
	SessionStateListening  SessionState = "LISTENING"
	SessionStateFinalizing SessionState = "FINALIZING"
	SessionStateGenerating SessionState = "GENERATING"
	SessionStateSpeaking   SessionState = "SPEAKING"
	SessionStateDegraded   SessionState = "DEGRADED"
)

// Session is owned by an Agent and owns its Messages.
type Session struct {
	ID        string
	UserID    string
	AgentID   string
	Type      SessionType
	Title     string
	Active    bool
	StartedAt time.Time
	EndedAt   *time.Time
}

func NewSession(id, userID, agentID string, sessionType SessionType) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		AgentID:   agentID,
		Type:      sessionType,
		Active:    true,
		StartedAt: time.Now().UTC(),
	}
}

// End marks the session ended, enforcing active=true ⇒ ended_at=null.
func (s *Session) End() {
	if !s.Active {
		return
	}
	now := time.Now().UTC()
	s.Active = false
	s.EndedAt = &now
}
