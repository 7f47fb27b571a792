package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/johnbuck/voxbridge/internal/ports"
)

func TestPoolAdd_NormalizesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{map[string]any{"id": "vec1", "memory": "Portland", "event": "ADD"}},
		})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(ctx, NewClient(server.URL, ""))
	defer pool.Close()

	items, err := pool.Add(context.Background(), []ports.VectorMessage{{Role: "user", Content: "I live in Portland"}}, "user-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Text != "Portland" {
		t.Fatalf("unexpected normalized items: %+v", items)
	}
}

func TestPoolSearch_ConcurrentCallsAreBounded(t *testing.T) {
	var mu sync.Mutex
	var active, maxActive int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()

		json.NewEncoder(w).Encode([]any{map[string]any{"id": "vec1", "memory": "Portland"}})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(ctx, NewClient(server.URL, ""))
	defer pool.Close()

	done := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		go func() {
			pool.Search(context.Background(), "query", "user-1", 5)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if maxActive > poolWorkers {
		t.Errorf("expected at most %d concurrent calls, observed %d", poolWorkers, maxActive)
	}
}

func TestPoolDelete_PropagatesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(server.URL, "")
	client.retryConfig.MaxRetries = 0
	pool := NewPool(ctx, client)
	defer pool.Close()

	if err := pool.Delete(context.Background(), "vec1"); err == nil {
		t.Fatal("expected error from delete")
	}
}
