// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "lanegate/pkg/domain"
)

type (
	callerKey    struct{}
	requestIDKey struct{}
	timeKey      struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCaller    = callerKey{}
	ContextKeyRequestID = requestIDKey{}
	ContextKeyTime      = timeKey{}
)

// Caller retrieves the authenticated caller identity from the context,
// id.None when unauthenticated.
func Caller(ctx context.Context) id.AppID {
	if caller, ok := ctx.Value(ContextKeyCaller).(id.AppID); ok {
		return caller
	}
	return id.None
}

// WithCaller injects a caller identity into the context.
func WithCaller(ctx context.Context, caller id.AppID) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// RequestID retrieves the request id from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request-scoped time when middleware captured one, falling
// back to the wall clock. Everything inside one request observes the same
// instant.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyTime, t)
}
