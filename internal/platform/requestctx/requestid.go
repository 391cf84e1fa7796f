// Package requestctx carries request-scoped correlation values through
// context so lower layers never touch transport headers.
package requestctx

import "context"

// requestIDContextKey is the context key for the request correlation ID.
type requestIDContextKey struct{}

// WithRequestID stores a request correlation ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request correlation ID stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey{}).(string)
	return value
}
