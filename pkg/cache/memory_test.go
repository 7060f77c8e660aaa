package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()

	ctx := context.Background()
	if err := mc.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got string
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}
	if got != "v" {
		t.Fatalf("got %q", got)
	}

	// Advance past the TTL without sleeping.
	now = now.Add(2 * time.Hour)
	if err := mc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(
		WithMemoryMaxSize(2),
		WithMemoryClock(func() time.Time {
			now = now.Add(time.Second)
			return now
		}),
	)
	defer mc.Close()

	ctx := context.Background()
	mc.Set(ctx, "a", "1", time.Hour)
	mc.Set(ctx, "b", "2", time.Hour)
	mc.Set(ctx, "c", "3", time.Hour)

	ok, _ := mc.Exists(ctx, "a")
	if ok {
		t.Fatalf("oldest key should have been evicted")
	}
	ok, _ = mc.Exists(ctx, "c")
	if !ok {
		t.Fatalf("newest key should survive")
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()
	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock should succeed: %v", err)
	}
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	if ok {
		t.Fatalf("second lock should fail")
	}
	if err := mc.Unlock(ctx, "lock"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatalf("lock after unlock should succeed")
	}
}
