package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/storefront-api/internal/ratelimit"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
//
// A single mutex covers the sweep, the decision and the write, so concurrent
// requests for the same key never both observe a stale count. Counters live
// only as long as the process; run one store per process and share it.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	records map[string]ratelimit.Record
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		records: make(map[string]ratelimit.Record),
	}
}

func (s *RateLimitMemoryStore) Hit(
	_ context.Context, key string, policy ratelimit.Policy, now time.Time,
) (ratelimit.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now.Add(-policy.Window))

	current, found := s.records[key]
	decision := ratelimit.Decide(current, found, policy, now)
	s.records[key] = decision.Record

	return decision, nil
}

// sweep drops records whose window ended at or before windowStart, i.e.
// records that have been expired for at least one further window.
// Callers must hold s.mu.
func (s *RateLimitMemoryStore) sweep(windowStart time.Time) {
	for key, rec := range s.records {
		if !rec.ResetTime.After(windowStart) {
			delete(s.records, key)
		}
	}
}

// Lookup returns the stored record for key without applying a request.
func (s *RateLimitMemoryStore) Lookup(key string) (ratelimit.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]

	return rec, ok
}

// Len returns the number of tracked keys.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
