package memory

import (
	"context"
	"testing"
	"time"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

func summarizationConfig() config.MemoryConfig {
	cfg := baseMemoryConfig()
	cfg.EnableSummarization = true
	cfg.SummarizationMinAge = 24 * time.Hour
	cfg.SummarizationMinClusterSize = 3
	cfg.SummarizationMaxClusterSize = 8
	cfg.SummarizationSimilarityThreshold = 0.75
	return cfg
}

func TestRunSummarizationCycle_ClustersAndSummarizesOldFacts(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, facts, vectors := testService(t, agent, fakeCompleter{response: `{"summary": "The user enjoys several hobbies."}`}, summarizationConfig())

	old := time.Now().UTC().Add(-48 * time.Hour)
	for i, key := range []string{"vec-1", "vec-2", "vec-3"} {
		f := models.NewUserFact("fact"+string(rune('1'+i)), "u1", key, "User likes hobby "+string(rune('A'+i)))
		f.CreatedAt = old
		f.MemoryBank = models.BankInterests
		facts.Insert(context.Background(), f)
		vectors.items[key] = ports.NormalizedItem{ID: key, Text: f.FactText}
		vectors.scores[key] = 0.9
	}

	stats, err := svc.RunSummarizationCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.SummariesCreated != 1 {
		t.Fatalf("expected 1 summary created, got %+v", stats)
	}
	if stats.FactsSummarized != 3 {
		t.Fatalf("expected 3 facts summarized, got %+v", stats)
	}

	var summaryCount, originalCount int
	for _, f := range facts.byID {
		if f.IsSummarized {
			summaryCount++
			if !f.IsProtected {
				t.Error("expected summary fact to be protected from pruning")
			}
		} else {
			originalCount++
		}
	}
	if summaryCount != 1 {
		t.Errorf("expected exactly one summary fact to remain, got %d", summaryCount)
	}
	if originalCount != 0 {
		t.Errorf("expected original facts to be deleted, got %d remaining", originalCount)
	}
}

func TestRunSummarizationCycle_BelowMinClusterSizeSkipsUser(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, facts, vectors := testService(t, agent, fakeCompleter{err: errClassifierCalled}, summarizationConfig())

	old := time.Now().UTC().Add(-48 * time.Hour)
	f := models.NewUserFact("fact1", "u1", "vec-1", "User likes jazz")
	f.CreatedAt = old
	facts.Insert(context.Background(), f)
	vectors.items["vec-1"] = ports.NormalizedItem{ID: "vec-1", Text: f.FactText}

	stats, err := svc.RunSummarizationCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.UsersProcessed != 0 || stats.SummariesCreated != 0 {
		t.Fatalf("expected no processing below min cluster size, got %+v", stats)
	}
}

func TestRunSummarizationCycle_DisabledSkipsEntirely(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	cfg := summarizationConfig()
	cfg.EnableSummarization = false
	svc, _, _ := testService(t, agent, fakeCompleter{err: errClassifierCalled}, cfg)

	stats, err := svc.RunSummarizationCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != (SummarizationStats{}) {
		t.Fatalf("expected zero-value stats when disabled, got %+v", stats)
	}
}
