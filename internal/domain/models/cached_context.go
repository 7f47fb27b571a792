package models

import (
	"sync"
	"time"
)

// CachedContext is C6's per-session conversation cache entry. It stores
// plain values detached from any DB handle or ORM, per spec; the Lock field
// lets the cache serialize concurrent reads/writes to a single session's
// entry without locking the whole cache map (grounded on voice/session.go's
// per-session sync.RWMutex idiom).
type CachedContext struct {
	Session *Session
	Agent   *Agent

	// Messages is ordered oldest -> newest, capped at MaxContextMessages.
	Messages []Message

	LastActivity time.Time
	ExpiresAt    time.Time

	Lock sync.Mutex
}

const MaxContextMessages = 50

// Touch refreshes LastActivity/ExpiresAt, the invariant every cache
// operation must maintain.
func (c *CachedContext) Touch(ttl time.Duration) {
	now := time.Now().UTC()
	c.LastActivity = now
	c.ExpiresAt = now.Add(ttl)
}

func (c *CachedContext) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AppendMessage appends m, capping the slice at MaxContextMessages by
// dropping the oldest entries.
func (c *CachedContext) AppendMessage(m Message) {
	c.Messages = append(c.Messages, m)
	if len(c.Messages) > MaxContextMessages {
		c.Messages = c.Messages[len(c.Messages)-MaxContextMessages:]
	}
}
