package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Bins  int     `json:"bins"`
	Level float64 `json:"level"`
}

func TestMemoryCacheStructRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "snapshot", payload{Bins: 3, Level: 41.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "snapshot", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Bins != 3 || got.Level != 41.5 {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "tick", time.Minute)
	if !ok {
		t.Fatalf("first lock should succeed")
	}
	ok, _ = mc.TryLock(ctx, "tick", time.Minute)
	if ok {
		t.Fatalf("second lock should fail")
	}
	_ = mc.Unlock(ctx, "tick")
	ok, _ = mc.TryLock(ctx, "tick", time.Minute)
	if !ok {
		t.Fatalf("lock after unlock should succeed")
	}
}

func TestMemoryCacheIncrementAndEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := mc.Increment(ctx, "seq")
		if err != nil || n != int64(i) {
			t.Fatalf("increment %d: got %d, %v", i, n, err)
		}
	}

	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "a", "1", 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", 0)
	var s string
	if err := mc.Get(ctx, "seq", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected oldest key evicted, got %v", err)
	}
}
