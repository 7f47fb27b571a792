package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

// manualFactPayload is the JSON body carried after the
// models.ManualFactCreationMarker prefix in an ExtractionTask's UserMessage,
// or passed directly to CreateManualFact from an administrative API.
type manualFactPayload struct {
	FactKey    string  `json:"fact_key"`
	FactValue  string  `json:"fact_value"`
	FactText   string  `json:"fact_text"`
	Scope      string  `json:"scope"` // "global" or "agent"
	Importance float64 `json:"importance"`
	MemoryBank string  `json:"memory_bank"`
}

// CreateManualFact creates a fact directly from a user-authored payload,
// bypassing the LLM relevance filter and extraction shortcut entirely. No
// deduplication check is made; the insert is followed by pruning. Grounded on
// process_extraction_queue's MANUAL_FACT_CREATION branch.
func (s *Service) CreateManualFact(ctx context.Context, userID, agentID, payload string) (*models.UserFact, error) {
	var p manualFactPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("parse manual fact payload: %w", err)
	}
	if p.FactText == "" {
		p.FactText = p.FactValue
	}
	if p.FactText == "" {
		return nil, fmt.Errorf("manual fact payload has no fact_text or fact_value")
	}

	var scope *string
	if p.Scope == string(models.MemoryScopeAgent) {
		scope = &agentID
	}

	bank := models.MemoryBank(p.MemoryBank)
	if bank == "" {
		bank = inferMemoryBank(p.FactKey, p.FactText)
	}
	importance := p.Importance
	if importance == 0 {
		importance = inferImportance(p.FactKey, p.FactText)
	}

	items, err := s.vectors.Add(ctx, []ports.VectorMessage{{Role: "user", Content: p.FactText}}, userID, false)
	if err != nil {
		return nil, fmt.Errorf("add manual fact vector: %w", err)
	}
	vectorID := ""
	if len(items) > 0 {
		vectorID = items[0].ID
	}

	fact := models.NewUserFact(s.newFactID(), userID, vectorID, p.FactText)
	fact.AgentID = scope
	fact.FactKey = p.FactKey
	fact.FactValue = p.FactValue
	fact.MemoryBank = bank
	fact.Importance = importance
	fact.IsProtected = true // manual facts are user-authored, never auto-pruned

	if err := s.facts.Insert(ctx, fact); err != nil {
		return nil, fmt.Errorf("insert manual fact: %w", err)
	}
	if err := s.enforceMemoryLimit(ctx, userID, scope); err != nil {
		return fact, fmt.Errorf("enforce memory limit after manual fact: %w", err)
	}
	return fact, nil
}
