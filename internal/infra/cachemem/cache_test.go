package cachemem

import (
	"context"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	cache := New()
	if _, ok, _ := cache.Get(ctx, "missing"); ok {
		t.Fatal("expected miss")
	}
	if err := cache.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("unexpected get: %q %v %v", value, ok, err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: time.Unix(1000, 0)}
	cache := NewWithClock(clock.Now)
	_ = cache.Set(ctx, "k", "v", 30*time.Second)

	clock.Advance(29 * time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	clock.Advance(time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatal("expected miss at expiry")
	}
	if cache.Len() != 0 {
		t.Fatal("expired entry should be evicted on read")
	}
}

func TestCache_NilReceiver(t *testing.T) {
	var cache *Cache
	if err := cache.Set(context.Background(), "k", "v", time.Second); err != nil {
		t.Fatalf("set on nil cache: %v", err)
	}
	if _, ok, err := cache.Get(context.Background(), "k"); ok || err != nil {
		t.Fatalf("unexpected get on nil cache: %v %v", ok, err)
	}
}
