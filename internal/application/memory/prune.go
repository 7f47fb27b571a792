package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// enforceMemoryLimit prunes a user's facts down toward maxFacts when the
// scoped count has reached or exceeded it, deleting (count-maxFacts)
// unprotected facts plus batchSize extra, so pruning doesn't have to run
// again on the very next insert. Candidates always come in
// OldestUnprotected's order (never-accessed first, then by last_accessed_at,
// then created_at): "fifo" and "lru" select the same facts, and the strategy
// value only appears in the log line. Grounded on
// _enforce_memory_limit/_prune_fifo/_prune_lru; unknown strategies fall back
// to fifo with a warning, matching the Python original.
func (s *Service) enforceMemoryLimit(ctx context.Context, userID string, agentID *string) error {
	count, err := s.facts.CountForUser(ctx, userID, agentID)
	if err != nil {
		return fmt.Errorf("count facts for pruning: %w", err)
	}
	if count < s.cfg.MaxFactsPerUser {
		return nil
	}

	toPrune := (count - s.cfg.MaxFactsPerUser) + s.cfg.PruningBatchSize
	if toPrune > count {
		toPrune = count
	}

	strategy := s.cfg.PruningStrategy
	switch strategy {
	case "fifo", "lru":
	default:
		slog.Warn("memory: unknown pruning strategy, defaulting to fifo", "strategy", strategy)
		strategy = "fifo"
	}

	candidates, err := s.facts.OldestUnprotected(ctx, userID, agentID, toPrune)
	if err != nil {
		return fmt.Errorf("load pruning candidates: %w", err)
	}

	pruned := 0
	for _, f := range candidates {
		if !f.Prunable() {
			continue
		}
		if err := s.deleteFactWithVector(ctx, &f); err != nil {
			slog.Error("memory: failed to prune fact", "fact_id", f.ID, "error", err)
			continue
		}
		pruned++
	}
	slog.Info("memory: pruned facts", "user_id", userID, "strategy", strategy, "requested", toPrune, "pruned", pruned)
	return nil
}

// deleteFactWithVector implements the compensating-transaction ordering: the
// vector is deleted first (it's the system of record for retrieval), then
// the relational row. If the vector delete fails, the relational row is
// left in place rather than risk an orphaned vector with no matching fact;
// if the relational delete then fails after a successful vector delete, a
// memory_error event-worthy inconsistency is logged for operators to
// reconcile (the orchestrator's ErrorCallback wiring surfaces this as
// EventMemoryError in C9/C11).
func (s *Service) deleteFactWithVector(ctx context.Context, f *models.UserFact) error {
	if f.VectorID != "" {
		if err := s.vectors.Delete(ctx, f.VectorID); err != nil {
			return fmt.Errorf("delete vector %s: %w", f.VectorID, err)
		}
	}
	if err := s.facts.Delete(ctx, f.ID); err != nil {
		slog.Error("memory: vector deleted but relational row delete failed, fact orphaned", "fact_id", f.ID, "vector_id", f.VectorID, "error", err)
		return fmt.Errorf("delete fact row %s: %w", f.ID, err)
	}
	return nil
}
