//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/storefront-api/internal/ratelimit"
	"github.com/serroba/storefront-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
	})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	s := store.NewRateLimitRedisStore(client)
	policy := ratelimit.Policy{Window: time.Minute, MaxRequests: 3}
	now := time.Now().Truncate(time.Millisecond)

	t.Run("enforces the fixed window", func(t *testing.T) {
		key := "it-" + uuid.NewString()
		defer client.Del(ctx, "ratelimit:"+key)

		for i := int64(1); i <= 3; i++ {
			d, err := s.Hit(ctx, key, policy, now)

			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, i, d.Record.Count)
			assert.True(t, d.Record.ResetTime.Equal(now.Add(time.Minute)))
		}

		d, err := s.Hit(ctx, key, policy, now.Add(10*time.Second))

		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, int64(50), ratelimit.RetryAfter(d.Record.ResetTime, now.Add(10*time.Second)))

		d, err = s.Hit(ctx, key, policy, now.Add(61*time.Second))

		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(1), d.Record.Count)
	})

	t.Run("keys expire one window after reset", func(t *testing.T) {
		key := "it-" + uuid.NewString()
		defer client.Del(ctx, "ratelimit:"+key)

		_, err := s.Hit(ctx, key, ratelimit.Policy{Window: time.Hour, MaxRequests: 1}, time.Now())
		require.NoError(t, err)

		ttl, err := client.PTTL(ctx, "ratelimit:"+key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Hour)
		assert.LessOrEqual(t, ttl, 2*time.Hour)
	})
}
