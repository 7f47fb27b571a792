package memory

import (
	"context"
	"testing"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

func TestRetrieve_ReturnsValidFactsAndTouchesLastAccessed(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, facts, vectors := testService(t, agent, fakeCompleter{}, baseMemoryConfig())

	vectors.items["vec-b"] = ports.NormalizedItem{ID: "vec-b", Text: "User likes jazz"}

	f := models.NewUserFact("fact1", "u1", "vec-b", "User likes jazz")
	facts.Insert(context.Background(), f)

	out, err := svc.Retrieve(context.Background(), "u1", "a1", "music", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != "fact1" {
		t.Fatalf("expected the one valid fact back, got %+v", out)
	}
	if facts.byID["fact1"].LastAccessedAt == nil {
		t.Error("expected LastAccessedAt to be touched on retrieval")
	}
}

func TestRetrieve_ExcludesExpiredFacts(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, facts, vectors := testService(t, agent, fakeCompleter{}, baseMemoryConfig())

	vectors.items["vec-b"] = ports.NormalizedItem{ID: "vec-b", Text: "User was traveling"}

	past := time.Now().Add(-time.Hour)
	f := models.NewUserFact("fact1", "u1", "vec-b", "User was traveling")
	f.ValidityEnd = &past
	facts.Insert(context.Background(), f)

	out, err := svc.Retrieve(context.Background(), "u1", "a1", "travel", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected expired fact excluded, got %+v", out)
	}
}

func TestEnqueueExtraction_InsertsPendingTask(t *testing.T) {
	agent := models.NewAgent("a1", "Agent", "be helpful")
	svc, _, _ := testService(t, agent, fakeCompleter{}, baseMemoryConfig())

	task, err := svc.EnqueueExtraction(context.Background(), "u1", "a1", "hi", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.ExtractionPending {
		t.Errorf("expected pending status, got %v", task.Status)
	}
}
