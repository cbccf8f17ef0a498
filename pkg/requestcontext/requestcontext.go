// Package requestcontext carries request-scoped values through context.
// It is the single place where context keys live, so handlers, services,
// stores, and workers agree on what "request ID", "client IP", and "now" mean.
package requestcontext

import (
	"context"
	"time"
)

type (
	contextKeyRequestID struct{}
	contextKeyClientIP  struct{}
	contextKeyTime      struct{}
)

// WithRequestID injects the request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID retrieves the request correlation ID, or "" when absent
// (workers, CLI, tests that skip the middleware chain).
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}

// WithClientIP injects the remote client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyClientIP{}, ip)
}

// ClientIP retrieves the remote client IP, or "" when absent.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
//   - Consumers stamping every mutation from one message with the same instant
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyTime{}, t)
}

// Now retrieves the request-scoped time from context.
// All operations within a single request observe the same "now", so scores,
// deadlines, and audit records computed together never disagree about time.
// Falls back to time.Now().UTC() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyTime{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}
