// Package trace provides request-scoped tracing identifiers.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// Context contains request tracing information.
type Context struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// With adds the trace Context to ctx.
func With(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// Get returns the trace Context from ctx, or nil.
func Get(ctx context.Context) *Context {
	if v, ok := ctx.Value(traceContextKey{}).(*Context); ok {
		return v
	}
	return nil
}

// RequestID returns the request ID from ctx or empty string.
func RequestID(ctx context.Context) string {
	if t := Get(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// New creates a trace Context with generated IDs.
func New() *Context {
	return &Context{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
	}
}
