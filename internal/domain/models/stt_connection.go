package models

import "time"

type STTStatus string

const (
	STTDisconnected STTStatus = "disconnected"
	STTConnecting   STTStatus = "connecting"
	STTConnected    STTStatus = "connected"
	STTReconnecting STTStatus = "reconnecting"
	STTFailed       STTStatus = "failed"
)

// STTConnection tracks one session's WebSocket connection to the STT
// engine. It is owned by C3's connection pool, keyed by SessionID.
type STTConnection struct {
	SessionID        string
	Status           STTStatus
	ReconnectAttempts int
	LastActivity     time.Time
	URL              string

	// AudioFormatSent tracks whether the control frame ({type:"start",
	// format, sample_rate}) has already been sent on this connection. It is
	// cleared on every reconnect so the next audio send replays the start
	// frame before any audio bytes.
	AudioFormatSent bool
}

func NewSTTConnection(sessionID, url string) *STTConnection {
	return &STTConnection{
		SessionID: sessionID,
		Status:    STTDisconnected,
		URL:       url,
	}
}
