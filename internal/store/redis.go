// redis.go -- go-redis backed replay guard for transaction nonces.
//
// Each nonce is claimed with SET NX under a TTL matching the token lifetime,
// so a transaction token can complete at most one callback across every
// instance that shares the Redis.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// nonceKeyPrefix namespaces replay-guard keys inside a shared Redis.
const nonceKeyPrefix = "ferry:nonce:"

// RedisStore wraps a Redis client for nonce consumption.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and returns a ready-to-use replay guard.
// It pings Redis to verify connectivity before returning.
// Call once at startup from main.go...returned store is safe for concurrent use.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// ConsumeNonce claims key for ttl. The first caller wins; every later call
// inside the TTL gets ErrNonceReused.
func (s *RedisStore) ConsumeNonce(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, nonceKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("claiming nonce: %w", err)
	}
	if !ok {
		return ErrNonceReused
	}
	return nil
}

// CheckHealth pings Redis.
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() {
	s.rdb.Close()
}
