package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/storefront-api/internal/audit"
	"github.com/serroba/storefront-api/internal/metrics"
	"github.com/serroba/storefront-api/internal/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DecisionObserver receives the outcome of every guarded request.
type DecisionObserver interface {
	ObserveDecision(operation, outcome string)
	ObservePublish(err error)
}

// RejectionRecorder receives an event for every rejected request.
type RejectionRecorder interface {
	Enabled() bool
	Record(ctx context.Context, event *audit.RejectionEvent) error
}

// RateLimitGuard returns a Huma middleware that enforces the policy attached
// to the matched operation.
//
// Operations without a policy pass straight through. A rejected request is
// answered with 429, a Retry-After header and a JSON body of the form
// {"statusCode":429,"message":"...","retryAfter":N}; it never reaches the
// handler. Store failures are answered with 500.
func RateLimitGuard(
	api huma.API,
	guard *ratelimit.Guard,
	resolver *ratelimit.Resolver,
	observer DecisionObserver,
	recorder RejectionRecorder,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	// Every rejection is counted, but a flood of them only logs a sample.
	warnings := &rate.Sometimes{First: 10, Interval: 10 * time.Second}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()

		policy := resolver.Resolve(op)
		if policy == nil {
			next(ctx)

			return
		}

		meta, ok := MetaFromContext(ctx.Context())
		if !ok {
			meta = buildMeta(ctx, false)
		}

		opID := operationID(op)
		key := ratelimit.ClientKey(meta.ClientIP, meta.UserAgent)
		span := trace.SpanFromContext(ctx.Context())

		decision, err := guard.Check(ctx.Context(), key, policy)

		var exceeded *ratelimit.ExceededError

		switch {
		case errors.As(err, &exceeded):
			observer.ObserveDecision(opID, metrics.OutcomeRejected)
			span.SetAttributes(
				attribute.Bool("ratelimit.allowed", false),
				attribute.Int64("ratelimit.retry_after", exceeded.RetryAfter),
			)

			warnings.Do(func() {
				logger.Warn("rate limit exceeded",
					zap.String("operation", opID),
					zap.String("method", ctx.Method()),
					zap.String("client_ip", meta.ClientIP),
					zap.String("request_id", meta.RequestID),
					zap.Int64("count", decision.Record.Count),
					zap.Int64("max", policy.MaxRequests),
					zap.Duration("window", policy.Window),
					zap.Int64("retry_after", exceeded.RetryAfter),
				)
			})

			recordRejection(ctx, recorder, observer, logger, &audit.RejectionEvent{
				OperationID: opID,
				Method:      ctx.Method(),
				Path:        ctx.URL().Path,
				ClientKey:   key,
				ClientIP:    meta.ClientIP,
				UserAgent:   meta.UserAgent,
				RequestID:   meta.RequestID,
				Count:       decision.Record.Count,
				MaxRequests: policy.MaxRequests,
				WindowMs:    policy.Window.Milliseconds(),
				RetryAfter:  exceeded.RetryAfter,
				RejectedAt:  time.Now().UTC(),
			})

			writeExceeded(api, ctx, exceeded, logger)

			return
		case err != nil:
			observer.ObserveDecision(opID, metrics.OutcomeError)
			logger.Error("rate limit check failed", zap.String("operation", opID), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		observer.ObserveDecision(opID, metrics.OutcomeAllowed)
		span.SetAttributes(
			attribute.Bool("ratelimit.allowed", true),
			attribute.Int64("ratelimit.count", decision.Record.Count),
		)

		next(ctx)
	}
}

func recordRejection(
	ctx huma.Context,
	recorder RejectionRecorder,
	observer DecisionObserver,
	logger *zap.Logger,
	event *audit.RejectionEvent,
) {
	if recorder == nil || !recorder.Enabled() {
		return
	}

	err := recorder.Record(ctx.Context(), event)
	observer.ObservePublish(err)

	if err != nil {
		logger.Error("failed to publish rejection event",
			zap.String("operation", event.OperationID),
			zap.Error(err),
		)
	}
}

func writeExceeded(api huma.API, ctx huma.Context, exceeded *ratelimit.ExceededError, logger *zap.Logger) {
	ctx.SetHeader("Retry-After", strconv.FormatInt(exceeded.RetryAfter, 10))
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(exceeded.StatusCode)

	if err := api.Marshal(ctx.BodyWriter(), "application/json", exceeded); err != nil {
		logger.Error("failed to write rate limit response", zap.Error(err))
	}
}

func operationID(op *huma.Operation) string {
	if op == nil {
		return ""
	}

	if op.OperationID != "" {
		return op.OperationID
	}

	return op.Method + " " + op.Path
}
