package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

const extractionSystemPrompt = `You extract durable facts worth remembering about a user from one conversation turn.
Only extract facts that will still be true and useful in future conversations (preferences, relationships, health, work, goals, recurring events).
Do not extract facts about the assistant, generic chit-chat, or anything already obvious from context.
Respond with a JSON object of the shape {"facts": [{"fact_key": "...", "fact_value": "...", "fact_text": "..."}]}.
fact_text must be phrased in the third person (e.g. "User's favorite color is blue").
If nothing is worth remembering, respond with {"facts": []}.`

type extractedFact struct {
	FactKey   string `json:"fact_key"`
	FactValue string `json:"fact_value"`
	FactText  string `json:"fact_text"`
}

type extractedFactsResponse struct {
	Facts []extractedFact `json:"facts"`
}

// extractFactsViaLLM is the non-shortcut extraction path: a single JSON-mode
// classification call over the user/assistant turn.
func (s *Service) extractFactsViaLLM(ctx context.Context, userMessage, aiResponse string) ([]extractedFact, error) {
	userPrompt := fmt.Sprintf("User: %s\nAssistant: %s", userMessage, aiResponse)
	raw, err := s.classifier.Complete(ctx, extractionSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("extraction classification: %w", err)
	}
	var parsed extractedFactsResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return parsed.Facts, nil
}

const temporalSystemPrompt = `Decide whether a fact about a user is permanent (always true) or temporary (expires after a known number of days).
Respond only with JSON: {"type": "permanent"} or {"type": "temporary", "days": N}.`

type temporalClassification struct {
	Type string `json:"type"`
	Days int    `json:"days"`
}

// temporalLLMAnalysis resolves validity for fact text the local pattern
// tables couldn't classify. Returns nil (permanent) or a concrete expiry.
func (s *Service) temporalLLMAnalysis(ctx context.Context, factText string, now time.Time) (*time.Time, error) {
	raw, err := s.classifier.Complete(ctx, temporalSystemPrompt, factText)
	if err != nil {
		return nil, fmt.Errorf("temporal classification: %w", err)
	}
	var parsed temporalClassification
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse temporal classification: %w", err)
	}
	if parsed.Type == "temporary" && parsed.Days > 0 {
		end := now.AddDate(0, 0, parsed.Days)
		return &end, nil
	}
	return nil, nil
}

// ExtractFactsFromTurn runs the full non-manual extraction pipeline for one
// conversation turn: the extraction shortcut or LLM classification, then
// per-candidate bank/category/importance/validity inference, deduplication,
// and insertion. Invoked by C8's queue worker, never from the real-time
// session path. Any failure records against the error guard (when enabled)
// and is returned for the worker to retry/fail the task.
func (s *Service) ExtractFactsFromTurn(ctx context.Context, userID, agentID, userMessage, aiResponse string) (err error) {
	now := time.Now().UTC()
	defer func() {
		if err != nil && s.cfg.EnableErrorGuard {
			s.guard.RecordError(now)
		}
	}()

	if s.cfg.EnableErrorGuard && s.guard.IsActive(now) {
		return domain.ErrCircuitOpen
	}

	agent, agErr := s.agents.Get(ctx, agentID)
	if agErr != nil {
		return fmt.Errorf("load agent for extraction: %w", agErr)
	}
	scope := resolveScope(agent)

	var candidates []extractedFact
	if s.cfg.EnableExtractionShortcuts && isSimplePreference(userMessage, s.cfg.ShortcutMaxLength) {
		key, value, text := extractPreferenceShortcut(userMessage)
		candidates = []extractedFact{{FactKey: key, FactValue: value, FactText: text}}
	} else {
		candidates, err = s.extractFactsViaLLM(ctx, userMessage, aiResponse)
		if err != nil {
			return err
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	var existing []models.UserFact
	if s.cfg.EnableDeduplication {
		existing, err = s.facts.ListValid(ctx, userID, scope)
		if err != nil {
			return fmt.Errorf("load existing facts for dedup: %w", err)
		}
	}

	for _, c := range candidates {
		if c.FactText == "" {
			continue
		}
		updated, err := s.ingestCandidate(ctx, userID, scope, c, existing, now)
		if err != nil {
			return err
		}
		existing = updated
	}

	return s.enforceMemoryLimit(ctx, userID, scope)
}

func (s *Service) ingestCandidate(ctx context.Context, userID string, scope *string, c extractedFact, existing []models.UserFact, now time.Time) ([]models.UserFact, error) {
	if s.cfg.EnableDeduplication {
		if isDuplicateText(c.FactText, existing, s.cfg.TextSimilarityThreshold) {
			return existing, nil
		}
		searchResults, err := s.vectors.Search(ctx, c.FactText, userID, 5)
		if err != nil {
			return existing, fmt.Errorf("dedup vector search: %w", err)
		}
		if isDuplicateEmbedding(searchResults, s.cfg.EmbeddingSimilarityThreshold) {
			return existing, nil
		}
	}

	bank := inferMemoryBank(c.FactKey, c.FactText)
	key := c.FactKey
	if key == "" {
		key = inferFactCategory(c.FactText)
	}
	importance := inferImportance(key, c.FactText)

	validityEnd, matched := inferValidityPeriodLocal(c.FactText, now)
	if !matched && s.cfg.EnableTemporalDetection && needsTemporalLLMFallback(c.FactText, bank == models.BankEvents) {
		if end, err := s.temporalLLMAnalysis(ctx, c.FactText, now); err == nil {
			validityEnd = end
		}
	}

	items, err := s.vectors.Add(ctx, []ports.VectorMessage{{Role: "user", Content: c.FactText}}, userID, true)
	if err != nil {
		return existing, fmt.Errorf("add fact vector: %w", err)
	}
	vectorID := ""
	if len(items) > 0 {
		vectorID = items[0].ID
	}

	fact := models.NewUserFact(s.newFactID(), userID, vectorID, c.FactText)
	fact.AgentID = scope
	fact.FactKey = key
	fact.FactValue = c.FactValue
	fact.MemoryBank = bank
	fact.Importance = importance
	fact.ValidityEnd = validityEnd

	if err := s.facts.Insert(ctx, fact); err != nil {
		return existing, fmt.Errorf("insert fact: %w", err)
	}
	return append(existing, *fact), nil
}
