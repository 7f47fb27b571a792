package models

import "time"

// MemoryBank is the coarse semantic category used for presentation and
// routing. _infer_memory_bank evaluates these in a fixed order: Events ->
// Health -> Relationships -> Interests -> Work -> Personal -> General.
type MemoryBank string

const (
	BankEvents        MemoryBank = "Events"
	BankHealth        MemoryBank = "Health"
	BankRelationships MemoryBank = "Relationships"
	BankInterests     MemoryBank = "Interests"
	BankWork          MemoryBank = "Work"
	BankPersonal      MemoryBank = "Personal"
	BankGeneral       MemoryBank = "General"
)

// BankEvaluationOrder is the fixed order _infer_memory_bank walks; first
// match wins. This order is part of the contract because fact text
// frequently matches more than one bank's pattern list.
var BankEvaluationOrder = []MemoryBank{
	BankEvents, BankHealth, BankRelationships, BankInterests, BankWork, BankPersonal,
}

// UserFact is a single piece of extracted long-term memory, 1:1 with a
// vector in the vector store via VectorID.
type UserFact struct {
	ID          string
	UserID      string
	AgentID     *string // nil => global scope

	FactKey   string
	FactValue string
	FactText  string

	VectorID string // unique, 1:1 with the vector store entry

	Importance float64 // [0,1]
	MemoryBank MemoryBank

	EmbeddingProvider string
	EmbeddingModel    string

	ValidityStart time.Time
	ValidityEnd   *time.Time

	IsProtected    bool
	IsSummarized   bool
	SummarizedFrom []string // original fact ids, when IsSummarized

	LastAccessedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsValid reports validity_end is null OR validity_end > now.
func (f *UserFact) IsValid(now time.Time) bool {
	return f.ValidityEnd == nil || f.ValidityEnd.After(now)
}

// Prunable reports whether f is eligible for FIFO/LRU pruning.
func (f *UserFact) Prunable() bool {
	return !f.IsProtected
}

func NewUserFact(id, userID, vectorID, factText string) *UserFact {
	now := time.Now().UTC()
	return &UserFact{
		ID:            id,
		UserID:        userID,
		FactText:      factText,
		VectorID:      vectorID,
		Importance:    0.5,
		MemoryBank:    BankGeneral,
		ValidityStart: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
