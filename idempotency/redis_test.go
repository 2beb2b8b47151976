package idempotency

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func testKey() string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

func TestReserveAndRelease(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	g := NewRedisGuard(client, time.Minute)
	key := testKey()
	defer client.Del(ctx, keyPrefix+key)

	ok, err := g.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Reserve(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "second reservation must fail")

	ttl, err := client.TTL(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, g.Release(ctx, key))
	ok, err = g.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "key must be reusable after release")
}

func TestCompleteAndLookup(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	g := NewRedisGuard(client, time.Minute)
	key := testKey()
	defer client.Del(ctx, keyPrefix+key)

	id, err := g.Lookup(ctx, key)
	require.NoError(t, err)
	require.Zero(t, id, "unknown key")

	ok, err := g.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	id, err = g.Lookup(ctx, key)
	require.NoError(t, err)
	require.Zero(t, id, "pending key")

	require.NoError(t, g.Complete(ctx, key, 42))
	id, err = g.Lookup(ctx, key)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	ttl, err := client.TTL(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0), "completing must keep the expiry")

	ok, err = g.Reserve(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "completed key stays held")
}

func TestReserveConcurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	g := NewRedisGuard(client, time.Minute)
	key := testKey()
	defer client.Del(ctx, keyPrefix+key)

	const n = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Reserve(ctx, key)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, won)
}

func TestReserveUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	_, err := NewRedisGuard(client, time.Minute).Reserve(context.Background(), "k")
	require.Error(t, err)
}
