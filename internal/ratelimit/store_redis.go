package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter counters in redis.
const KeyPrefix = "bifrost:ratelimit:"

// RedisStore implements CounterStore on a shared redis instance, which is
// what makes the quota hold across gateway replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr increments the window counter for key. INCR, EXPIRE NX and TTL run
// in one pipeline: the first increment of a window arms its expiry, and the
// TTL doubles as the Retry-After hint.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	full := KeyPrefix + key

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, full)
	pipe.ExpireNX(ctx, full, window)
	ttl := pipe.TTL(ctx, full)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	expiresIn := ttl.Val()
	if expiresIn < 0 {
		expiresIn = window
	}
	return incr.Val(), expiresIn, nil
}
