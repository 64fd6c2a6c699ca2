package cachemem

import (
	"context"
	"sync"
	"time"

	"notifications/internal/domain"
)

// Cache is an in-process TTL map used when CACHE_BACKEND=memory and in tests.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
	hasExpiry bool
}

func New() *Cache {
	return NewWithClock(nil)
}

func NewWithClock(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if entry.hasExpiry && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ domain.Cache = (*Cache)(nil)
