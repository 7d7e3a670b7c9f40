package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/storefront-api/internal/audit"
	"github.com/serroba/storefront-api/internal/metrics"
	"github.com/serroba/storefront-api/internal/middleware"
	"github.com/serroba/storefront-api/internal/ratelimit"
	"github.com/serroba/storefront-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserAgent = "curl/8.0"

type fakeObserver struct {
	decisions   map[string]int
	publishes   int
	publishErrs int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{decisions: map[string]int{}}
}

func (o *fakeObserver) ObserveDecision(_, outcome string) {
	o.decisions[outcome]++
}

func (o *fakeObserver) ObservePublish(err error) {
	o.publishes++

	if err != nil {
		o.publishErrs++
	}
}

type fakeRecorder struct {
	enabled bool
	err     error
	events  []*audit.RejectionEvent
}

func (r *fakeRecorder) Enabled() bool { return r.enabled }

func (r *fakeRecorder) Record(_ context.Context, event *audit.RejectionEvent) error {
	r.events = append(r.events, event)

	return r.err
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, ratelimit.Policy, time.Time) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

type guardFixture struct {
	router   *chi.Mux
	store    *store.RateLimitMemoryStore
	observer *fakeObserver
	recorder *fakeRecorder
	calls    map[string]int
}

var limitedPolicy = ratelimit.Policy{Window: time.Minute, MaxRequests: 2, Message: "slow down"}

func newGuardFixture(t *testing.T, s ratelimit.Store, withMeta bool) *guardFixture {
	t.Helper()

	router, api := newTestAPI()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	f := &guardFixture{
		router:   router,
		observer: newFakeObserver(),
		recorder: &fakeRecorder{enabled: true},
		calls:    map[string]int{},
	}
	if mem, ok := s.(*store.RateLimitMemoryStore); ok {
		f.store = mem
	}

	guard := ratelimit.NewGuard(s, ratelimit.WithClock(func() time.Time { return clock }))

	if withMeta {
		api.UseMiddleware(middleware.RequestMeta(api, false))
	}

	api.UseMiddleware(middleware.RateLimitGuard(
		api, guard, ratelimit.NewResolver(nil), f.observer, f.recorder, zap.NewNop(),
	))

	huma.Register(api, huma.Operation{
		OperationID: "get-limited",
		Method:      http.MethodGet,
		Path:        "/limited",
		Metadata:    map[string]any{ratelimit.MetadataKey: limitedPolicy},
	}, func(ctx context.Context, in *struct{}) (*testOutput, error) {
		f.calls["limited"]++

		return okHandler(ctx, in)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-open",
		Method:      http.MethodGet,
		Path:        "/open",
	}, func(ctx context.Context, in *struct{}) (*testOutput, error) {
		f.calls["open"]++

		return okHandler(ctx, in)
	})

	return f
}

func TestRateLimitGuard(t *testing.T) {
	ua := map[string]string{"User-Agent": testUserAgent}

	t.Run("rejects once the quota is used", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), true)

		assert.Equal(t, http.StatusOK, serve(f.router, http.MethodGet, "/limited", ua).Code)
		assert.Equal(t, http.StatusOK, serve(f.router, http.MethodGet, "/limited", ua).Code)

		w := serve(f.router, http.MethodGet, "/limited", ua)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"statusCode":429,"message":"slow down","retryAfter":60}`, w.Body.String())
		assert.Equal(t, 2, f.calls["limited"], "rejected request must not reach the handler")
		assert.Equal(t, 2, f.observer.decisions[metrics.OutcomeAllowed])
		assert.Equal(t, 1, f.observer.decisions[metrics.OutcomeRejected])
	})

	t.Run("counts clients by address and user agent", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), true)

		for range 3 {
			serve(f.router, http.MethodGet, "/limited", ua)
		}

		w := serve(f.router, http.MethodGet, "/limited", map[string]string{"User-Agent": "other"})

		assert.Equal(t, http.StatusOK, w.Code)

		// httptest requests come from 192.0.2.1.
		rec, ok := f.store.Lookup("192.0.2.1:" + testUserAgent)
		require.True(t, ok)
		assert.Equal(t, int64(2), rec.Count)
	})

	t.Run("operations without a policy pass through", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), true)

		for range 10 {
			assert.Equal(t, http.StatusOK, serve(f.router, http.MethodGet, "/open", ua).Code)
		}

		assert.Equal(t, 10, f.calls["open"])
		assert.Equal(t, 0, f.store.Len())
		assert.Empty(t, f.observer.decisions)
	})

	t.Run("records a rejection event", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), true)

		for range 3 {
			serve(f.router, http.MethodGet, "/limited", map[string]string{
				"User-Agent":               testUserAgent,
				middleware.RequestIDHeader: "req-42",
			})
		}

		require.Len(t, f.recorder.events, 1)

		event := f.recorder.events[0]
		assert.Equal(t, "get-limited", event.OperationID)
		assert.Equal(t, http.MethodGet, event.Method)
		assert.Equal(t, "/limited", event.Path)
		assert.Equal(t, "192.0.2.1:"+testUserAgent, event.ClientKey)
		assert.Equal(t, "req-42", event.RequestID)
		assert.Equal(t, int64(2), event.Count)
		assert.Equal(t, int64(2), event.MaxRequests)
		assert.Equal(t, int64(60000), event.WindowMs)
		assert.Equal(t, int64(60), event.RetryAfter)
		assert.Equal(t, 1, f.observer.publishes)
	})

	t.Run("publish failure still rejects", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), true)
		f.recorder.err = errors.New("stream unavailable")

		for range 2 {
			serve(f.router, http.MethodGet, "/limited", ua)
		}

		w := serve(f.router, http.MethodGet, "/limited", ua)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, 1, f.observer.publishErrs)
	})

	t.Run("disabled recorder is skipped", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), true)
		f.recorder.enabled = false

		for range 3 {
			serve(f.router, http.MethodGet, "/limited", ua)
		}

		assert.Empty(t, f.recorder.events)
		assert.Zero(t, f.observer.publishes)
	})

	t.Run("works without request metadata", func(t *testing.T) {
		f := newGuardFixture(t, store.NewRateLimitMemoryStore(), false)

		for range 2 {
			serve(f.router, http.MethodGet, "/limited", ua)
		}

		w := serve(f.router, http.MethodGet, "/limited", ua)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		var body ratelimit.ExceededError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(60), body.RetryAfter)
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		f := newGuardFixture(t, brokenStore{}, true)

		w := serve(f.router, http.MethodGet, "/limited", ua)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Zero(t, f.calls["limited"])
		assert.Equal(t, 1, f.observer.decisions[metrics.OutcomeError])
	})
}
