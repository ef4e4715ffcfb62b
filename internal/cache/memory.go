// Package cache holds computed reference results between price imports.
package cache

import (
	"context"
	"sync"
	"time"

	"omip-benchmark/internal/analysis"
)

type entry struct {
	result    *analysis.Result
	expiresAt time.Time
}

// Memory is a process-local TTL cache. A nil *Memory is a valid, always-empty
// cache.
type Memory struct {
	mu    sync.RWMutex
	store map[string]entry
	gen   analysis.Generation
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemory creates a cache and starts its cleanup loop; call Close to stop it.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &Memory{
		store: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanup(5 * time.Minute)
	return c
}

func (c *Memory) Get(_ context.Context, key string) (*analysis.Result, analysis.Generation, bool) {
	if c == nil {
		return nil, analysis.NoGeneration, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.store[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, c.gen, false
	}
	return e.result, c.gen, true
}

// Set is a no-op when an Invalidate happened since the Get that returned gen.
func (c *Memory) Set(_ context.Context, key string, gen analysis.Generation, r *analysis.Result) {
	if c == nil || gen == analysis.NoGeneration {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.store[key] = entry{result: r, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops every entry and starts a new generation.
func (c *Memory) Invalidate(_ context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]entry)
	c.gen++
	return nil
}

func (c *Memory) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Memory) Close() error {
	if c == nil {
		return nil
	}
	c.once.Do(func() { close(c.stop) })
	return nil
}

// cleanup periodically removes expired entries.
func (c *Memory) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Memory) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, key)
		}
	}
}
