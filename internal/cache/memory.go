package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is the in-process level of MultiLevelCache. Values are held as
// JSON so callers never share memory with a cached value. Expired entries are
// dropped lazily on access.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.evictLocked()
	}
	m.items[key] = entry
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return ErrCacheMiss
	}
	if entry.expired(m.now()) {
		m.mu.Lock()
		if current, still := m.items[key]; still && current.expired(m.now()) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

// DeletePattern removes keys matching a glob pattern, the same "*" and "?"
// syntax Redis SCAN MATCH understands.
func (m *MemoryCache) DeletePattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryCache) Stats(_ context.Context) map[string]interface{} {
	return map[string]interface{}{
		"entries":     m.Len(),
		"max_entries": m.maxEntries,
	}
}

func (m *MemoryCache) Health(context.Context) error {
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]memoryEntry)
	return nil
}

// evictLocked drops expired entries, then the entry closest to expiry if the
// cache is still full.
func (m *MemoryCache) evictLocked() {
	now := m.now()
	for key, entry := range m.items {
		if entry.expired(now) {
			delete(m.items, key)
		}
	}
	if len(m.items) < m.maxEntries {
		return
	}

	var victim string
	var soonest time.Time
	for key, entry := range m.items {
		if victim == "" || (!entry.expiresAt.IsZero() && (soonest.IsZero() || entry.expiresAt.Before(soonest))) {
			victim = key
			soonest = entry.expiresAt
		}
	}
	delete(m.items, victim)
}
