// Package contexthelpers stores request-scoped values in a context.Context.
package contexthelpers

import "context"

type contextKey string

const traceIDContextKey = contextKey("traceID")

// WithTraceID returns a copy of ctx carrying the request trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

// TraceID returns the trace id stored with WithTraceID or an empty string.
func TraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}
