package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

// SummarizationWorker runs a fixed-interval background sweep that clusters
// old, non-protected facts and consolidates each cluster into a single
// summary fact. Grounded on the Python original's run_summarization_cycle,
// polled the same way C8's Worker polls the extraction queue.
type SummarizationWorker struct {
	service  *Service
	interval time.Duration
}

func NewSummarizationWorker(service *Service, interval time.Duration) *SummarizationWorker {
	return &SummarizationWorker{service: service, interval: interval}
}

// Run ticks until ctx is cancelled, running one summarization cycle per
// tick. A failed cycle is logged and retried on the next tick; it never
// aborts the loop.
func (w *SummarizationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.service.RunSummarizationCycle(ctx); err != nil {
				slog.Error("memory: summarization cycle failed", "error", err)
			}
		}
	}
}

// SummarizationStats mirrors the Python cycle's return dict.
type SummarizationStats struct {
	UsersProcessed   int
	ClustersFound    int
	SummariesCreated int
	FactsSummarized  int
	Errors           int
}

// RunSummarizationCycle finds users with old, non-summarized, non-protected
// facts, clusters each user's facts by embedding similarity, and replaces
// every cluster at or above the minimum size with one consolidated summary
// fact. Grounded on _summarize_user_memories/_find_memory_clusters/
// _summarize_cluster.
func (s *Service) RunSummarizationCycle(ctx context.Context) (SummarizationStats, error) {
	var stats SummarizationStats
	if !s.cfg.EnableSummarization {
		slog.Debug("memory: summarization disabled, skipping cycle")
		return stats, nil
	}

	cutoff := time.Now().UTC().Add(-s.cfg.SummarizationMinAge)
	stale, err := s.facts.ListStaleUnsummarized(ctx, cutoff)
	if err != nil {
		return stats, fmt.Errorf("list stale facts: %w", err)
	}

	byUser := make(map[string][]models.UserFact)
	for _, f := range stale {
		byUser[f.UserID] = append(byUser[f.UserID], f)
	}

	for userID, facts := range byUser {
		if len(facts) < s.cfg.SummarizationMinClusterSize {
			continue
		}
		stats.UsersProcessed++

		clusters, err := s.findMemoryClusters(ctx, facts, userID)
		if err != nil {
			slog.Error("memory: cluster search failed", "user_id", userID, "error", err)
			stats.Errors++
			continue
		}
		stats.ClustersFound += len(clusters)

		for _, cluster := range clusters {
			if len(cluster) < s.cfg.SummarizationMinClusterSize {
				continue
			}
			created, err := s.summarizeCluster(ctx, cluster)
			if err != nil {
				slog.Error("memory: summarize cluster failed", "user_id", userID, "error", err)
				stats.Errors++
				continue
			}
			if created {
				stats.SummariesCreated++
				stats.FactsSummarized += len(cluster)
			}
		}
	}

	slog.Info("memory: summarization cycle complete",
		"users_processed", stats.UsersProcessed,
		"clusters_found", stats.ClustersFound,
		"summaries_created", stats.SummariesCreated,
		"facts_summarized", stats.FactsSummarized,
		"errors", stats.Errors,
	)
	return stats, nil
}

// findMemoryClusters greedily groups facts by embedding similarity: each
// unassigned fact seeds a cluster, and a vector-store search for that fact's
// text pulls in every other unassigned fact scoring at or above the
// similarity threshold, up to the max cluster size. Clusters that don't
// reach the minimum size are dissolved and their facts released for the
// next seed to try. Grounded on _find_memory_clusters.
func (s *Service) findMemoryClusters(ctx context.Context, facts []models.UserFact, userID string) ([][]models.UserFact, error) {
	byVector := make(map[string]models.UserFact, len(facts))
	for _, f := range facts {
		byVector[f.VectorID] = f
	}

	assigned := make(map[string]bool, len(facts))
	var clusters [][]models.UserFact

	for _, seed := range facts {
		if assigned[seed.ID] {
			continue
		}
		cluster := []models.UserFact{seed}
		assigned[seed.ID] = true

		results, err := s.vectors.Search(ctx, seed.FactText, userID, s.cfg.SummarizationMaxClusterSize)
		if err != nil {
			slog.Error("memory: cluster search failed for seed", "fact_id", seed.ID, "error", err)
		} else {
			for _, r := range results {
				if r.Score < s.cfg.SummarizationSimilarityThreshold {
					continue
				}
				f, ok := byVector[r.ID]
				if !ok || assigned[f.ID] {
					continue
				}
				cluster = append(cluster, f)
				assigned[f.ID] = true
				if len(cluster) >= s.cfg.SummarizationMaxClusterSize {
					break
				}
			}
		}

		if len(cluster) >= s.cfg.SummarizationMinClusterSize {
			clusters = append(clusters, cluster)
		} else {
			for _, f := range cluster {
				delete(assigned, f.ID)
			}
		}
	}

	return clusters, nil
}

const summarizationSystemPrompt = `You are a memory consolidation assistant. Combine related memories about a user into a single concise summary.

Rules:
1. Preserve all key information
2. Resolve contradictions (prefer newer information)
3. Remove redundancy
4. Maintain specific details when important
5. Keep the summary under 100 words
6. Write in third person (e.g., "The user likes..." not "I like...")

Respond with a JSON object of the form {"summary": "<paragraph>"}.`

type summarizationResponse struct {
	Summary string `json:"summary"`
}

// summarizeCluster replaces a cluster of related facts with one fact: the
// LLM-written consolidated summary, vectorized and inserted as protected
// (summaries are never pruned), with the originals deleted via the same
// compensating vector-then-row delete pruning uses. Grounded on
// _summarize_cluster.
func (s *Service) summarizeCluster(ctx context.Context, cluster []models.UserFact) (bool, error) {
	var sb strings.Builder
	for i, f := range cluster {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, f.FactText)
	}

	raw, err := s.classifier.Complete(ctx, summarizationSystemPrompt, sb.String())
	if err != nil {
		return false, fmt.Errorf("summarization completion: %w", err)
	}
	var parsed summarizationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || strings.TrimSpace(parsed.Summary) == "" {
		slog.Warn("memory: LLM returned empty or unparseable summary")
		return false, nil
	}
	summaryText := strings.TrimSpace(parsed.Summary)

	bankCounts := make(map[models.MemoryBank]int)
	var importanceSum float64
	for _, f := range cluster {
		bankCounts[f.MemoryBank]++
		importanceSum += f.Importance
	}
	mostCommonBank, originalIDs := models.BankGeneral, make([]string, 0, len(cluster))
	best := -1
	for bank, n := range bankCounts {
		if n > best {
			best, mostCommonBank = n, bank
		}
	}
	for _, f := range cluster {
		originalIDs = append(originalIDs, f.ID)
	}
	sort.Strings(originalIDs)
	avgImportance := importanceSum / float64(len(cluster))

	added, err := s.vectors.Add(ctx, []ports.VectorMessage{{Role: "user", Content: summaryText}}, cluster[0].UserID, true)
	if err != nil || len(added) == 0 {
		return false, fmt.Errorf("vectorize summary: %w", err)
	}

	summary := models.NewUserFact(s.newFactID(), cluster[0].UserID, added[0].ID, summaryText)
	summary.AgentID = cluster[0].AgentID
	summary.FactKey = "summary"
	summary.FactValue = truncate(summaryText, 200)
	summary.Importance = avgImportance
	summary.MemoryBank = mostCommonBank
	summary.EmbeddingProvider = cluster[0].EmbeddingProvider
	summary.EmbeddingModel = cluster[0].EmbeddingModel
	summary.IsSummarized = true
	summary.SummarizedFrom = originalIDs
	summary.IsProtected = true

	if err := s.facts.Insert(ctx, summary); err != nil {
		return false, fmt.Errorf("insert summary fact: %w", err)
	}

	for i := range cluster {
		if err := s.deleteFactWithVector(ctx, &cluster[i]); err != nil {
			slog.Warn("memory: failed to delete summarized source fact", "fact_id", cluster[i].ID, "error", err)
		}
	}

	slog.Info("memory: created summary fact", "fact_count", len(cluster), "bank", mostCommonBank)
	return true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
