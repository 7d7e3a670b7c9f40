package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type metaKey struct{}

// Meta holds HTTP request metadata shared by logging and rate limiting.
type Meta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithMeta adds request metadata to context.
func ContextWithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// MetaFromContext extracts request metadata from context.
func MetaFromContext(ctx context.Context) (Meta, bool) {
	meta, ok := ctx.Value(metaKey{}).(Meta)

	return meta, ok
}

// RequestMeta is a middleware that adds request ID, client IP, user-agent,
// and referrer to the request context and echoes the request ID back.
//
// Forwarding headers are only honoured when trustProxy is set; otherwise a
// client could pick its own rate limit identity.
func RequestMeta(_ huma.API, trustProxy bool) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := buildMeta(ctx, trustProxy)

		ctx.SetHeader(RequestIDHeader, meta.RequestID)

		newCtx := ContextWithMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func buildMeta(ctx huma.Context, trustProxy bool) Meta {
	id := strings.TrimSpace(ctx.Header(RequestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}

	return Meta{
		RequestID: id,
		ClientIP:  extractClientIP(ctx, trustProxy),
		UserAgent: ctx.Header("User-Agent"),
		Referrer:  ctx.Header("Referer"),
	}
}

func extractClientIP(ctx huma.Context, trustProxy bool) string {
	if trustProxy {
		// Check X-Forwarded-For first (may contain multiple IPs)
		if xff := ctx.Header("X-Forwarded-For"); xff != "" {
			// Take the first IP (original client)
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}

			return strings.TrimSpace(xff)
		}

		if xri := strings.TrimSpace(ctx.Header("X-Real-IP")); xri != "" {
			return xri
		}
	}

	addr := ctx.RemoteAddr()

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
