package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/storefront-api/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("counts decisions by operation and outcome", func(t *testing.T) {
		m := metrics.New()

		m.ObserveDecision("get-api-info", metrics.OutcomeAllowed)
		m.ObserveDecision("get-api-info", metrics.OutcomeAllowed)
		m.ObserveDecision("get-api-info", metrics.OutcomeRejected)

		expected := `
# HELP ratelimit_decisions_total Rate limit guard decisions by operation and outcome
# TYPE ratelimit_decisions_total counter
ratelimit_decisions_total{operation="get-api-info",outcome="allowed"} 2
ratelimit_decisions_total{operation="get-api-info",outcome="rejected"} 1
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "ratelimit_decisions_total"))
	})

	t.Run("counts publish results", func(t *testing.T) {
		m := metrics.New()

		m.ObservePublish(nil)
		m.ObservePublish(errors.New("stream down"))
		m.ObservePublish(errors.New("stream down"))

		expected := `
# HELP ratelimit_rejection_events_total Rejection audit events by publish result
# TYPE ratelimit_rejection_events_total counter
ratelimit_rejection_events_total{result="error"} 2
ratelimit_rejection_events_total{result="ok"} 1
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "ratelimit_rejection_events_total"))
	})

	t.Run("records requests and in-flight gauge", func(t *testing.T) {
		m := metrics.New()

		done := m.RequestStarted()
		m.ObserveRequest(http.MethodGet, "/", http.StatusTooManyRequests, 5*time.Millisecond)
		done()

		count, err := testutil.GatherAndCount(m.Registry(), "http_requests_total", "http_request_duration_seconds")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		expected := `
# HELP http_inflight_requests Current number of in-flight HTTP requests
# TYPE http_inflight_requests gauge
http_inflight_requests 0
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "http_inflight_requests"))
	})

	t.Run("serves the exposition format", func(t *testing.T) {
		m := metrics.New()
		m.ObserveDecision("get-api-info", metrics.OutcomeRejected)

		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `ratelimit_decisions_total{operation="get-api-info",outcome="rejected"} 1`)
		assert.Contains(t, w.Body.String(), "go_goroutines")
	})
}
