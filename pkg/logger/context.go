package logger

import "context"

type ctxKey struct{}

// WithContext returns a context carrying the given logger. Request
// middleware uses this to scope log fields to a single invocation.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or nil when absent.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return nil
}
