package ratelimit

import (
	"context"
	"time"
)

// Store defines the interface for rate limit data storage.
type Store interface {
	// Hit applies one request for key under policy at now and returns the
	// resulting decision. Implementations must perform the read, the check
	// and the write as a single atomic step per key.
	Hit(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error)
}
