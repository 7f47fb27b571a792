package models

import (
	"strings"
	"time"
)

type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

const MaxExtractionAttempts = 3

// ManualFactCreationMarker prefixes UserMessage when a task is a direct
// fact-creation request that bypasses LLM relevance filtering; the
// remainder of UserMessage after the marker is a JSON payload.
const ManualFactCreationMarker = "MANUAL_FACT_CREATION:"

// ExtractionTask is a unit of work for C8's extraction queue worker.
type ExtractionTask struct {
	ID          string
	UserID      string
	AgentID     string
	UserMessage string
	AIResponse  string
	Status      ExtractionStatus
	Attempts    int
	Error       *string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func NewExtractionTask(id, userID, agentID, userMessage, aiResponse string) *ExtractionTask {
	return &ExtractionTask{
		ID:          id,
		UserID:      userID,
		AgentID:     agentID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		Status:      ExtractionPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsManualFactCreation reports whether this task carries the manual
// fact-creation marker in UserMessage.
func (t *ExtractionTask) IsManualFactCreation() bool {
	return strings.HasPrefix(t.UserMessage, ManualFactCreationMarker)
}

// ManualFactPayload returns the JSON payload after the marker.
func (t *ExtractionTask) ManualFactPayload() string {
	return strings.TrimPrefix(t.UserMessage, ManualFactCreationMarker)
}

// MarkFailed sets status to failed if attempts have reached the cap or the
// error is permanent, otherwise leaves it pending for retry.
func (t *ExtractionTask) MarkFailed(errMsg string, permanent bool) {
	t.Attempts++
	t.Error = &errMsg
	if t.Attempts >= MaxExtractionAttempts || permanent {
		t.Status = ExtractionFailed
		now := time.Now().UTC()
		t.CompletedAt = &now
	} else {
		t.Status = ExtractionPending
	}
}

func (t *ExtractionTask) MarkCompleted() {
	t.Status = ExtractionCompleted
	now := time.Now().UTC()
	t.CompletedAt = &now
}
