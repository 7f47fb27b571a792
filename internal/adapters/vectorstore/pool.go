package vectorstore

import (
	"context"
	"log/slog"

	"github.com/johnbuck/voxbridge/internal/adapters/mem0"
	"github.com/johnbuck/voxbridge/internal/ports"
)

// poolWorkers is fixed at 2: the vector store is a shared external
// dependency and the memory service must never let it back up session
// processing, but it also doesn't need more concurrency than two
// in-flight calls provide.
const poolWorkers = 2

// Pool bounds how many vector-store calls run concurrently, the same
// single-consumer channel idiom voice/session.go uses for its ttsQueue/
// ttsWorker: callers submit work and block on a result channel, workers
// pull off one shared queue.
type Pool struct {
	client *Client
	queue  chan func()
}

// NewPool starts poolWorkers goroutines consuming from an internal job
// queue and returns once they're running. Call Close to drain and stop.
func NewPool(ctx context.Context, client *Client) *Pool {
	p := &Pool{
		client: client,
		queue:  make(chan func(), 64),
	}
	for i := 0; i < poolWorkers; i++ {
		go p.worker(ctx, i)
	}
	return p
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			job()
		}
	}
}

// Close stops accepting new work. In-flight jobs already pulled off the
// queue run to completion; it's the caller's responsibility to stop
// submitting before calling this.
func (p *Pool) Close() {
	close(p.queue)
}

// Add submits a memory-add call to the pool and blocks until it completes
// or ctx is cancelled.
func (p *Pool) Add(ctx context.Context, messages []ports.VectorMessage, userID string, infer bool) ([]ports.NormalizedItem, error) {
	type result struct {
		items []ports.NormalizedItem
		err   error
	}
	done := make(chan result, 1)

	clientMessages := make([]addMessage, len(messages))
	for i, m := range messages {
		clientMessages[i] = addMessage{Role: m.Role, Content: m.Content}
	}

	job := func() {
		raw, err := p.client.Add(ctx, clientMessages, userID, infer)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{items: mem0.NormalizeAddResponse(raw)}
	}

	select {
	case p.queue <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-done:
		if r.err != nil {
			slog.Error("vectorstore pool: add failed", "user_id", userID, "error", r.err)
		}
		return r.items, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Search submits a memory-search call to the pool and blocks until it
// completes or ctx is cancelled.
func (p *Pool) Search(ctx context.Context, query, userID string, limit int) ([]ports.NormalizedItem, error) {
	type result struct {
		items []ports.NormalizedItem
		err   error
	}
	done := make(chan result, 1)

	job := func() {
		raw, err := p.client.Search(ctx, query, userID, limit)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{items: mem0.NormalizeSearchResponse(raw)}
	}

	select {
	case p.queue <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-done:
		if r.err != nil {
			slog.Error("vectorstore pool: search failed", "user_id", userID, "error", r.err)
		}
		return r.items, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Delete submits a memory-delete call to the pool and blocks until it
// completes or ctx is cancelled.
func (p *Pool) Delete(ctx context.Context, vectorID string) error {
	done := make(chan error, 1)

	job := func() {
		done <- p.client.Delete(ctx, vectorID)
	}

	select {
	case p.queue <- job:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
