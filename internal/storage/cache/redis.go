// Package cache provides the counter stores backing the rate limiter:
// a Redis implementation for production and an in-memory one for tests
// and single-instance deployments.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homecall/push-relay/internal/ratelimit"
)

// RedisStore keeps each token's daily record in a Redis hash. HINCRBY
// gives us atomic read-modify-write per field, and EXPIRE NX pins the
// key's TTL to the first write of the day.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Fail fast if connection is bad
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests that
// point the store at an in-process Redis.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Counts(ctx context.Context, key string) (ratelimit.Values, error) {
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return ratelimit.Values{}, err
	}
	// A missing key yields an empty map, which parses to zero counts.
	return valuesFromFields(fields)
}

func (s *RedisStore) Increment(ctx context.Context, key string, field string, expireAt time.Time) (ratelimit.Values, error) {
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	// NX: only the first write of the day sets the expiry, so the window
	// stays anchored to the token's first touch.
	pipe.ExpireNX(ctx, key, time.Until(expireAt))
	getAll := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Values{}, err
	}
	return valuesFromFields(getAll.Val())
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func valuesFromFields(fields map[string]string) (ratelimit.Values, error) {
	var values ratelimit.Values
	for name, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ratelimit.Values{}, fmt.Errorf("corrupt counter %q: %w", name, err)
		}
		switch name {
		case string(ratelimit.KindSuccessful):
			values.Successful = n
		case string(ratelimit.KindErrors):
			values.Errors = n
		}
	}
	return values, nil
}
