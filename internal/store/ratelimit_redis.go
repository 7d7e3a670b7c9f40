package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/storefront-api/internal/ratelimit"
)

// fixedWindowScript runs the fixed-window decision inside Redis so the
// read-check-write is atomic across every process sharing the instance.
//
// KEYS[1] = record key
// ARGV[1] = now (unix ms), ARGV[2] = window (ms), ARGV[3] = max requests
// Returns {count, reset_ms, allowed}.
var fixedWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

local count = tonumber(redis.call('HGET', KEYS[1], 'count'))
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset'))

if not count or not reset or reset <= now then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset)
  redis.call('PEXPIREAT', KEYS[1], reset + window)
  return {1, reset, 1}
end

if count >= max then
  return {count, reset, 0}
end

count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset, 1}
`)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store.
// Records expire one full window after their reset time, mirroring the
// in-memory sweep.
type RateLimitRedisStore struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
	}
}

func (r *RateLimitRedisStore) Hit(
	ctx context.Context, key string, policy ratelimit.Policy, now time.Time,
) (ratelimit.Decision, error) {
	res, err := fixedWindowScript.Run(ctx, r.client,
		[]string{r.prefix + key},
		now.UnixMilli(),
		policy.Window.Milliseconds(),
		policy.MaxRequests,
	).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, err
	}

	if len(res) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("unexpected script reply of length %d", len(res))
	}

	return ratelimit.Decision{
		Allowed: res[2] == 1,
		Record: ratelimit.Record{
			Count:     res[0],
			ResetTime: time.UnixMilli(res[1]),
		},
	}, nil
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitRedisStore)(nil)
