//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"omip-benchmark/internal/analysis"
)

func TestRedisInvalidateBumpsGeneration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate redis: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewRedis(url, "omip:test:", time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, gen, _ := c.Get(ctx, "2025-01:3:v0")
	c.Set(ctx, "2025-01:3:v0", gen, &analysis.Result{Months: 3, MonthsFound: 2})
	got, _, ok := c.Get(ctx, "2025-01:3:v0")
	if !ok || got.Months != 3 || got.MonthsFound != 2 {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := c.Get(ctx, "2025-01:3:v0"); ok {
		t.Fatal("entry should be unreachable after invalidation")
	}

	// A result computed against the old generation stays unreachable.
	c.Set(ctx, "2025-01:3:v0", gen, &analysis.Result{Months: 3})
	if _, _, ok := c.Get(ctx, "2025-01:3:v0"); ok {
		t.Fatal("stale result written after invalidation must not be served")
	}

	// A second client sharing the prefix sees the same generation.
	other, err := NewRedis(url, "omip:test:", time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	_, gen, _ = other.Get(ctx, "k")
	other.Set(ctx, "k", gen, &analysis.Result{Months: 1})
	if _, _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("replicas should share entries")
	}
}
