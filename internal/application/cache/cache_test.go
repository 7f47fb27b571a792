package cache

import (
	"context"
	"testing"
	"time"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

func testCache() *Cache {
	return NewCache(config.CacheConfig{
		TTL:                time.Minute,
		SweepInterval:       time.Hour,
		MaxContextMessages:  5,
	})
}

func TestGetOrCreate_ReturnsSameEntryOnRepeatedCalls(t *testing.T) {
	c := testCache()
	session := models.NewSession("s1", "u1", "a1", models.SessionTypeWeb)
	agent := models.NewAgent("a1", "Agent", "be helpful")

	first := c.GetOrCreate(context.Background(), session, agent)
	second := c.GetOrCreate(context.Background(), session, agent)

	if first != second {
		t.Fatal("expected GetOrCreate to return the same entry for the same session")
	}
}

func TestAddMessage_AppendsInOrderAndCaps(t *testing.T) {
	c := testCache()
	session := models.NewSession("s1", "u1", "a1", models.SessionTypeWeb)
	agent := models.NewAgent("a1", "Agent", "be helpful")
	c.GetOrCreate(context.Background(), session, agent)

	for i := 0; i < 8; i++ {
		m := models.Message{ID: string(rune('a' + i)), SessionID: "s1", Role: models.RoleUser, Content: "msg " + string(rune('a'+i)), Timestamp: time.Now().Add(time.Duration(i) * time.Minute)}
		c.AddMessage(context.Background(), "s1", m)
	}

	entry := c.GetOrCreate(context.Background(), session, agent)
	if len(entry.Messages) != 5 {
		t.Fatalf("expected cap of 5 messages, got %d", len(entry.Messages))
	}
	if entry.Messages[0].ID != "d" {
		t.Errorf("expected oldest retained message to be the 4th inserted (id d), got %s", entry.Messages[0].ID)
	}
}

func TestAddMessage_SuppressesDuplicateWithinWindow(t *testing.T) {
	c := testCache()
	session := models.NewSession("s1", "u1", "a1", models.SessionTypeWeb)
	agent := models.NewAgent("a1", "Agent", "be helpful")
	c.GetOrCreate(context.Background(), session, agent)

	now := time.Now()
	first := models.Message{ID: "1", SessionID: "s1", Role: models.RoleUser, Content: "hi", Timestamp: now}
	c.AddMessage(context.Background(), "s1", first)

	dup := models.Message{ID: "2", SessionID: "s1", Role: models.RoleUser, Content: "hi", Timestamp: now.Add(2 * time.Second)}
	_, inserted := c.AddMessage(context.Background(), "s1", dup)
	if inserted {
		t.Fatal("expected duplicate message within the suppression window to be rejected")
	}

	entry := c.GetOrCreate(context.Background(), session, agent)
	if len(entry.Messages) != 1 {
		t.Fatalf("expected exactly one stored message, got %d", len(entry.Messages))
	}
}

func TestAddMessage_UnknownSessionReturnsNotInserted(t *testing.T) {
	c := testCache()
	_, inserted := c.AddMessage(context.Background(), "missing", models.Message{})
	if inserted {
		t.Fatal("expected AddMessage against an unknown session to report not inserted")
	}
}

func TestInvalidate_RemovesEntry(t *testing.T) {
	c := testCache()
	session := models.NewSession("s1", "u1", "a1", models.SessionTypeWeb)
	agent := models.NewAgent("a1", "Agent", "be helpful")
	c.GetOrCreate(context.Background(), session, agent)

	c.Invalidate("s1")

	c.mu.RLock()
	_, ok := c.entries["s1"]
	c.mu.RUnlock()
	if ok {
		t.Fatal("expected entry to be removed after Invalidate")
	}
}

func TestSweep_EvictsExpiredEntries(t *testing.T) {
	c := testCache()
	c.ttl = -time.Second // already expired as soon as created

	session := models.NewSession("s1", "u1", "a1", models.SessionTypeWeb)
	agent := models.NewAgent("a1", "Agent", "be helpful")
	c.GetOrCreate(context.Background(), session, agent)

	c.sweep()

	c.mu.RLock()
	_, ok := c.entries["s1"]
	c.mu.RUnlock()
	if ok {
		t.Fatal("expected expired entry to be swept")
	}
}
