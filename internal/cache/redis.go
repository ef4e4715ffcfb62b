package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"omip-benchmark/internal/analysis"
)

// Redis shares cached results between API replicas. Invalidation bumps a
// generation counter that is part of every key, so stale entries are never
// read again and age out through their TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(url, prefix string, ttl time.Duration, log *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisFromClient(redis.NewClient(opts), prefix, ttl, log)
}

// NewRedisFromClient wraps an existing client and verifies it is reachable.
func NewRedisFromClient(client *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) (*Redis, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("reference cache using redis", zap.String("prefix", prefix))
	return &Redis{client: client, prefix: prefix, ttl: ttl, log: log}, nil
}

func (c *Redis) Get(ctx context.Context, key string) (*analysis.Result, analysis.Generation, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, analysis.NoGeneration, false
	}
	full := c.key(gen, key)
	raw, err := c.client.Get(ctx, full).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis get failed", zap.String("key", full), zap.Error(err))
		}
		return nil, gen, false
	}
	var r analysis.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		c.log.Warn("discarding undecodable cache entry", zap.String("key", full), zap.Error(err))
		return nil, gen, false
	}
	return &r, gen, true
}

// Set writes under the generation the caller looked up, so a result computed
// before an import lands under a key no reader will ask for again.
func (c *Redis) Set(ctx context.Context, key string, gen analysis.Generation, r *analysis.Result) {
	if gen == analysis.NoGeneration {
		return
	}
	full := c.key(gen, key)
	raw, err := json.Marshal(r)
	if err != nil {
		c.log.Warn("cannot encode cache entry", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, full, raw, c.ttl).Err(); err != nil {
		c.log.Warn("redis set failed", zap.String("key", full), zap.Error(err))
	}
}

func (c *Redis) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.prefix+"gen").Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) generation(ctx context.Context) (analysis.Generation, error) {
	gen, err := c.client.Get(ctx, c.prefix+"gen").Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("redis generation lookup failed", zap.Error(err))
		return analysis.NoGeneration, err
	}
	return analysis.Generation(gen), nil
}

func (c *Redis) key(gen analysis.Generation, key string) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, gen, key)
}
