// Package cache implements ports.ConversationCache: an in-memory,
// per-session conversation window with a TTL sweeper. Grounded on
// voice/session.go's SessionManager — a map of per-entity state guarded by
// a short-lived sync.RWMutex for insert/remove, a ticker-driven
// cleanupSessions sweep — generalized from VoiceSession liveness checks to
// CachedContext expiry.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// Cache is the conversation cache (C6). The outer mu only ever guards
// map membership (insert/delete); reads and writes of an individual
// CachedContext's Messages go through that entry's own Lock, so concurrent
// turns on different sessions never contend on the map lock — matching
// spec §5's "no shared resource is held across a suspension point" policy.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*models.CachedContext

	ttl           time.Duration
	sweepInterval time.Duration
	maxMessages   int
}

func NewCache(cfg config.CacheConfig) *Cache {
	maxMessages := cfg.MaxContextMessages
	if maxMessages <= 0 {
		maxMessages = models.MaxContextMessages
	}
	return &Cache{
		entries:       make(map[string]*models.CachedContext),
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		maxMessages:   maxMessages,
	}
}

// Run starts the TTL sweeper; it blocks until ctx is cancelled, so callers
// run it in its own goroutine (mirroring SessionManager.monitorSessions).
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	for sessionID, entry := range c.entries {
		if entry.Expired(now) {
			slog.Info("cache: evicting expired session context", "session_id", sessionID)
			delete(c.entries, sessionID)
		}
	}
}

// GetOrCreate returns the session's cache entry, creating an empty one if
// none exists yet.
func (c *Cache) GetOrCreate(ctx context.Context, session *models.Session, agent *models.Agent) *models.CachedContext {
	c.mu.RLock()
	entry, ok := c.entries[session.ID]
	c.mu.RUnlock()
	if ok {
		return entry
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[session.ID]; ok {
		return entry
	}
	entry = &models.CachedContext{Session: session, Agent: agent}
	entry.Touch(c.ttl)
	c.entries[session.ID] = entry
	return entry
}

// AddMessage appends m to its session's context, capped at maxMessages and
// suppressing exact duplicates inserted within the same 10-second window
// (models.Message.DuplicateOf). It returns the message actually recorded
// (m itself, unless suppressed, in which case the prior duplicate) and
// whether m was newly appended.
func (c *Cache) AddMessage(ctx context.Context, sessionID string, m models.Message) (*models.Message, bool) {
	c.mu.RLock()
	entry, ok := c.entries[sessionID]
	c.mu.RUnlock()
	if !ok {
		return &m, false
	}

	entry.Lock.Lock()
	defer entry.Lock.Unlock()

	now := time.Now().UTC()
	if len(entry.Messages) > 0 {
		last := entry.Messages[len(entry.Messages)-1]
		if m.DuplicateOf(&last, now) {
			return &last, false
		}
	}

	entry.AppendMessage(m)
	if len(entry.Messages) > c.maxMessages {
		entry.Messages = entry.Messages[len(entry.Messages)-c.maxMessages:]
	}
	entry.Touch(c.ttl)
	return &m, true
}

// Invalidate drops sessionID's cache entry outright, e.g. on session end.
func (c *Cache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}
