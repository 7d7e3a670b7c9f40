package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrLimitExceeded is the sentinel every ExceededError unwraps to.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// ExceededError is returned when a client has used up its quota for the
// current window. It doubles as the JSON body of the 429 response.
type ExceededError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", e.Message, e.RetryAfter)
}

func (e *ExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// GetStatus lets huma render the error with the right status code.
func (e *ExceededError) GetStatus() int {
	return e.StatusCode
}

// GetHeaders adds Retry-After when huma renders the error.
func (e *ExceededError) GetHeaders() http.Header {
	h := http.Header{}
	h.Set("Retry-After", strconv.FormatInt(e.RetryAfter, 10))

	return h
}

// Guard performs admission control for policy-bearing operations.
type Guard struct {
	store Store
	now   func() time.Time
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithClock replaces the wall clock used to timestamp requests.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates a guard backed by store.
func NewGuard(store Store, opts ...GuardOption) *Guard {
	g := &Guard{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Check admits or rejects one request for key.
//
// A nil policy means the operation is not rate limited: the request is
// allowed and the store is not touched. A rejection is reported as an
// *ExceededError; any other error comes from the store.
func (g *Guard) Check(ctx context.Context, key string, policy *Policy) (Decision, error) {
	if policy == nil {
		return Decision{Allowed: true}, nil
	}

	now := g.now()

	decision, err := g.store.Hit(ctx, key, *policy, now)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	if !decision.Allowed {
		return decision, &ExceededError{
			StatusCode: http.StatusTooManyRequests,
			Message:    policy.RejectionMessage(),
			RetryAfter: RetryAfter(decision.Record.ResetTime, now),
		}
	}

	return decision, nil
}

// RetryAfter returns the whole seconds, rounded up, until resetTime.
// It never returns a negative value.
func RetryAfter(resetTime, now time.Time) int64 {
	remaining := resetTime.Sub(now)
	if remaining <= 0 {
		return 0
	}

	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}

	return secs
}
