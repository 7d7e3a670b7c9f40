package middleware

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestObserver receives timing for every completed request.
type RequestObserver interface {
	RequestStarted() func()
	ObserveRequest(method, route string, status int, d time.Duration)
}

// RequestLogger returns a Huma middleware that writes one log line per
// request and reports it to observer. Server errors log at error level.
func RequestLogger(logger *zap.Logger, observer RequestObserver) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		done := observer.RequestStarted()

		next(ctx)

		done()

		duration := time.Since(start)

		status := ctx.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := ctx.URL().Path
		if op := ctx.Operation(); op != nil && op.Path != "" {
			route = op.Path
		}

		observer.ObserveRequest(ctx.Method(), route, status, duration)

		meta, _ := MetaFromContext(ctx.Context())

		level := zapcore.InfoLevel
		if status >= http.StatusInternalServerError {
			level = zapcore.ErrorLevel
		}

		logger.Log(level, "http request",
			zap.String("request_id", meta.RequestID),
			zap.String("method", ctx.Method()),
			zap.String("route", route),
			zap.String("path", ctx.URL().Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", meta.ClientIP),
			zap.String("user_agent", meta.UserAgent),
		)
	}
}
