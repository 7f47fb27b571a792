// Package memory implements the Memory Service (C7): scope resolution, the
// extraction shortcut/third-person rewrite, bank/category/importance/
// validity inference, deduplication, FIFO/LRU pruning with compensating
// vector-then-row deletes, and the error-guard circuit breaker. Grounded on
// original_source/src/services/memory_service.py, translated into the
// repository/vector-store-pool idiom the rest of this module uses (C1's
// vault, C2's mem0 normalizer, the vectorstore.Pool built for C7's storage
// layer).
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/id"
)

// Service implements ports.MemoryService and is additionally called
// directly by C8's extraction queue worker (ExtractFactsFromTurn isn't part
// of the narrower ports.MemoryService contract the session orchestrator
// depends on).
type Service struct {
	agents  ports.AgentRepository
	facts   ports.UserFactRepository
	tasks   ports.ExtractionTaskRepository
	vectors ports.VectorStore

	classifier completer

	cfg   config.MemoryConfig
	guard *ErrorGuard
}

func NewService(agents ports.AgentRepository, facts ports.UserFactRepository, tasks ports.ExtractionTaskRepository, vectors ports.VectorStore, classifier *Classifier, cfg config.MemoryConfig) *Service {
	return &Service{
		agents:     agents,
		facts:      facts,
		tasks:      tasks,
		vectors:    vectors,
		classifier: classifier,
		cfg:        cfg,
		guard:      NewErrorGuard(cfg.GuardWindow, cfg.GuardThreshold, cfg.GuardCooldown),
	}
}

func (s *Service) newFactID() string {
	return id.New(id.PrefixUserFact)
}

// Retrieve returns up to limit currently-valid facts relevant to query,
// touching LastAccessedAt on each (the Python original's
// _update_last_accessed, applied lazily on read rather than in a separate
// pass).
func (s *Service) Retrieve(ctx context.Context, userID, agentID, query string, limit int) ([]models.UserFact, error) {
	results, err := s.vectors.Search(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieve: vector search: %w", err)
	}

	now := time.Now().UTC()
	out := make([]models.UserFact, 0, len(results))
	for _, r := range results {
		fact, err := s.facts.GetByVectorID(ctx, r.ID)
		if err != nil {
			continue
		}
		if !fact.IsValid(now) {
			continue
		}
		fact.LastAccessedAt = &now
		_ = s.facts.Update(ctx, fact)
		out = append(out, *fact)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// EnqueueExtraction queues a background extraction task; C8's worker drains
// pending tasks and calls ExtractFactsFromTurn.
func (s *Service) EnqueueExtraction(ctx context.Context, userID, agentID, userMessage, aiResponse string) (*models.ExtractionTask, error) {
	task := models.NewExtractionTask(id.New(id.PrefixExtractionTask), userID, agentID, userMessage, aiResponse)
	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue extraction task: %w", err)
	}
	return task, nil
}
