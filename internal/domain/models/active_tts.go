package models

import "time"

type TTSStatus string

const (
	TTSIdle         TTSStatus = "idle"
	TTSSynthesizing TTSStatus = "synthesizing"
	TTSStreaming    TTSStatus = "streaming"
	TTSCompleted    TTSStatus = "completed"
	TTSFailed       TTSStatus = "failed"
	TTSCancelled    TTSStatus = "cancelled"
)

// ActiveTTS tracks one in-flight synthesis request, owned by C4.
type ActiveTTS struct {
	SessionID string
	Text      string
	Voice     string
	Speed     float64
	Status    TTSStatus
	StartedAt time.Time

	// CancelSignal is closed to cancel an in-flight synthesis, e.g. on
	// barge-in during C9's SPEAKING state.
	CancelSignal chan struct{}
}

func NewActiveTTS(sessionID, text, voice string, speed float64) *ActiveTTS {
	return &ActiveTTS{
		SessionID:    sessionID,
		Text:         text,
		Voice:        voice,
		Speed:        speed,
		Status:       TTSIdle,
		StartedAt:    time.Now().UTC(),
		CancelSignal: make(chan struct{}),
	}
}

func (a *ActiveTTS) Cancel() {
	select {
	case <-a.CancelSignal:
	default:
		close(a.CancelSignal)
	}
}
