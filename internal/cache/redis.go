package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

const redisKeyPrefix = "vista:cache:"

// Redis is the shared ResponseCache backend for multi-instance deployments.
// Redis expires entries natively, so Cleanup is a no-op; hit/miss counters
// are per-process.
type Redis struct {
	client *redis.Client
	logger *common.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis creates a Redis-backed response cache and verifies connectivity.
func NewRedis(ctx context.Context, cfg common.RedisConfig, logger *common.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if logger == nil {
		logger = common.NewSilentLogger()
	}

	logger.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Redis cache connected")

	return &Redis{client: client, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, opType string, params any) ([]byte, bool) {
	key := redisKeyPrefix + Key(opType, params)

	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("Redis get failed")
		}
		r.misses.Add(1)
		return nil, false
	}

	// Per-entry hit counter lives beside the payload with the same lifetime.
	r.client.Incr(ctx, key+":hits")
	r.hits.Add(1)
	return payload, true
}

func (r *Redis) Set(ctx context.Context, opType string, params any, payload []byte, ttl ...time.Duration) {
	key := redisKeyPrefix + Key(opType, params)

	d := TTLFor(opType)
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	if err := r.client.Set(ctx, key, payload, d).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Redis set failed")
		return
	}
	r.client.Set(ctx, key+":hits", 0, d)
}

func (r *Redis) Delete(ctx context.Context, opType string, params any) {
	key := redisKeyPrefix + Key(opType, params)
	r.client.Del(ctx, key, key+":hits")
}

func (r *Redis) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		r.client.Del(ctx, keys...)
	}
}

// Cleanup is a no-op for Redis — the server expires entries itself.
func (r *Redis) Cleanup(_ context.Context) int {
	return 0
}

func (r *Redis) Stats(ctx context.Context) *models.CacheStats {
	entries := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		entries++
	}
	// Every payload key has a sibling :hits key.
	entries /= 2

	return &models.CacheStats{
		Backend: "redis",
		Entries: entries,
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Ensure Redis implements ResponseCache
var _ interfaces.ResponseCache = (*Redis)(nil)
