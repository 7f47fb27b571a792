package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

func testService(t *testing.T, agent *models.Agent, comp completer, cfg config.MemoryConfig) (*Service, *fakeFactRepo, *fakeVectorStore) {
	t.Helper()
	agents := newFakeAgentRepo(agent)
	facts := newFakeFactRepo()
	tasks := newFakeTaskRepo()
	vectors := newFakeVectorStore()
	svc := &Service{
		agents:     agents,
		facts:      facts,
		tasks:      tasks,
		vectors:    vectors,
		classifier: comp,
		cfg:        cfg,
		guard:      NewErrorGuard(cfg.GuardWindow, cfg.GuardThreshold, cfg.GuardCooldown),
	}
	return svc, facts, vectors
}

func baseMemoryConfig() config.MemoryConfig {
	return config.MemoryConfig{
		MaxFactsPerUser:              500,
		PruningStrategy:              "fifo",
		PruningBatchSize:             10,
		EnableExtractionShortcuts:    true,
		ShortcutMaxLength:            100,
		EnableDeduplication:          true,
		EmbeddingSimilarityThreshold: 0.85,
		TextSimilarityThreshold:      0.90,
		EnableTemporalDetection:      true,
		EnableErrorGuard:             true,
		GuardWindow:                  60 * time.Second,
		GuardThreshold:               5,
		GuardCooldown:                120 * time.Second,
	}
}

var errClassifierCalled = errors.New("classifier should not have been called")

func TestExtractFactsFromTurn_ShortcutPathSkipsLLM(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, facts, _ := testService(t, agent, fakeCompleter{err: errClassifierCalled}, baseMemoryConfig())

	err := svc.ExtractFactsFromTurn(context.Background(), "u1", "a1", "I love sushi", "Got it!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts.byID) != 1 {
		t.Fatalf("expected exactly one fact stored, got %d", len(facts.byID))
	}
	for _, f := range facts.byID {
		if f.MemoryBank != models.BankInterests {
			t.Errorf("expected Interests bank for a 'love' preference, got %v", f.MemoryBank)
		}
	}
}

func TestExtractFactsFromTurn_LLMPathParsesFacts(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	resp := `{"facts": [{"fact_key": "occupation", "fact_value": "nurse", "fact_text": "User works as a nurse"}]}`
	svc, facts, _ := testService(t, agent, fakeCompleter{response: resp}, baseMemoryConfig())

	err := svc.ExtractFactsFromTurn(context.Background(), "u1", "a1", "I work at the hospital as a nurse", "That's great!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts.byID) != 1 {
		t.Fatalf("expected exactly one fact stored, got %d", len(facts.byID))
	}
}

func TestExtractFactsFromTurn_EmptyFactsListInsertsNothing(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, facts, _ := testService(t, agent, fakeCompleter{response: `{"facts": []}`}, baseMemoryConfig())

	err := svc.ExtractFactsFromTurn(context.Background(), "u1", "a1", "what's the weather like", "It's sunny")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts.byID) != 0 {
		t.Fatalf("expected no facts stored, got %d", len(facts.byID))
	}
}

func TestExtractFactsFromTurn_CircuitOpenSkipsExtraction(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	cfg := baseMemoryConfig()
	svc, _, _ := testService(t, agent, fakeCompleter{err: errClassifierCalled}, cfg)

	now := time.Now()
	for i := 0; i < cfg.GuardThreshold; i++ {
		svc.guard.RecordError(now)
	}

	err := svc.ExtractFactsFromTurn(context.Background(), "u1", "a1", "I love sushi", "Got it!")
	if err == nil {
		t.Fatal("expected circuit-open error when the guard is tripped")
	}
}
