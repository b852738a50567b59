package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGetIsolation(t *testing.T) {
	m := NewMemoryCache(0)
	ctx := context.Background()

	original := []string{"a", "b"}
	if err := m.Set(ctx, "list", original, time.Minute); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	original[0] = "mutated"

	var got []string
	if err := m.Get(ctx, "list", &got); err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if got[0] != "a" {
		t.Errorf("Expected cached value to be isolated from caller, got %v", got)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	m := NewMemoryCache(0)
	m.now = clock.Now
	ctx := context.Background()

	m.Set(ctx, "k", 1, time.Minute)
	clock.Advance(59 * time.Second)

	var v int
	if err := m.Get(ctx, "k", &v); err != nil {
		t.Errorf("Expected hit before expiry, got %v", err)
	}

	clock.Advance(time.Second)
	if err := m.Get(ctx, "k", &v); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss at expiry, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Expected expired entry to be dropped, got %d entries", m.Len())
	}
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	m := NewMemoryCache(0)
	ctx := context.Background()

	for _, key := range []string{"todos:all", "todos:completed", "todos:stats", "todo:7"} {
		m.Set(ctx, key, true, time.Minute)
	}

	if err := m.DeletePattern(ctx, "todos:*"); err != nil {
		t.Fatalf("Failed to delete pattern: %v", err)
	}

	if m.Len() != 1 {
		t.Errorf("Expected 1 entry left, got %d", m.Len())
	}
	if ok := holds(m, "todo:7"); !ok {
		t.Error("Expected todo:7 to survive the pattern delete")
	}

	if err := m.DeletePattern(ctx, "todos:["); err == nil {
		t.Error("Expected malformed pattern to be rejected")
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	clock := newFakeClock()
	m := NewMemoryCache(2)
	m.now = clock.Now
	ctx := context.Background()

	m.Set(ctx, "short", 1, time.Second)
	m.Set(ctx, "long", 2, time.Hour)
	m.Set(ctx, "new", 3, time.Hour)

	if m.Len() != 2 {
		t.Fatalf("Expected cache to stay at capacity 2, got %d", m.Len())
	}
	if ok := holds(m, "short"); ok {
		t.Error("Expected the entry closest to expiry to be evicted")
	}
	if ok := holds(m, "new"); !ok {
		t.Error("Expected the new entry to be stored")
	}
}

func TestMemoryCache_DeleteAndClose(t *testing.T) {
	m := NewMemoryCache(0)
	ctx := context.Background()

	m.Set(ctx, "a", 1, 0)
	m.Set(ctx, "b", 2, 0)
	m.Delete(ctx, "a")

	if ok := holds(m, "a"); ok {
		t.Error("Expected a to be deleted")
	}

	m.Close()
	if m.Len() != 0 {
		t.Errorf("Expected Close to clear the cache, got %d entries", m.Len())
	}
}

func holds(c Cache, key string) bool {
	var v interface{}
	return c.Get(context.Background(), key, &v) == nil
}
