package cache

import (
	"context"
	"testing"
	"time"

	"omip-benchmark/internal/analysis"
)

func TestMemoryGetSetExpire(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, gen, _ := c.Get(ctx, "2025-01:3:v0")
	c.Set(ctx, "2025-01:3:v0", gen, &analysis.Result{Months: 3})
	got, _, ok := c.Get(ctx, "2025-01:3:v0")
	if !ok || got.Months != 3 {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, _, ok := c.Get(ctx, "2025-01:3:v0"); ok {
		t.Fatal("entry should have expired")
	}
	c.evictExpired()
	if c.Len() != 0 {
		t.Fatalf("len after eviction = %d", c.Len())
	}
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Close()

	c.Set(ctx, "a", 0, &analysis.Result{})
	c.Set(ctx, "b", 0, &analysis.Result{})
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestNilMemoryIsEmpty(t *testing.T) {
	var c *Memory
	ctx := context.Background()
	c.Set(ctx, "a", 0, &analysis.Result{})
	if _, _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("nil cache must miss")
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMemorySetFromOldGenerationIsDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Close()

	_, gen, ok := c.Get(ctx, "k")
	if ok {
		t.Fatal("empty cache must miss")
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	c.Set(ctx, "k", gen, &analysis.Result{Months: 1})
	if _, _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("result computed before Invalidate must not be stored")
	}

	_, gen, _ = c.Get(ctx, "k")
	c.Set(ctx, "k", gen, &analysis.Result{Months: 2})
	if got, _, ok := c.Get(ctx, "k"); !ok || got.Months != 2 {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	c.Set(ctx, "other", analysis.NoGeneration, &analysis.Result{})
	if _, _, ok := c.Get(ctx, "other"); ok {
		t.Fatal("unknown generation must not be stored")
	}
}
