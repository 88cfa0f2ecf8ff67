package types

import "context"

// requestIDKey is used to store the request ID in context.Context
type requestIDKey struct{}

// WithRequestID adds a request ID to a context.Context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the request ID from context.Context, or "" if unset
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
