package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idem:purchase:"
	pending   = "pending"
)

// RedisGuard reserves idempotency keys in Redis. A key holds "pending" while
// its purchase runs and the purchase id afterwards. Keys expire after ttl so
// abandoned reservations do not block clients forever.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Reserve claims key and reports whether it was free.
func (g *RedisGuard) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, pending, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Complete stores the purchase id under key, keeping the reservation's expiry.
func (g *RedisGuard) Complete(ctx context.Context, key string, purchaseID int64) error {
	if err := g.client.Set(ctx, keyPrefix+key, strconv.FormatInt(purchaseID, 10), redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Lookup returns the purchase id stored under key. It returns 0 when the key
// is pending or gone.
func (g *RedisGuard) Lookup(ctx context.Context, key string) (int64, error) {
	v, err := g.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) || v == pending {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup idempotency key: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("lookup idempotency key: bad value %q", v)
	}
	return id, nil
}

// Release frees key so the request can be retried with it.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
