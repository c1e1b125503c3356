package middleware

import "context"

type contextKey int

const (
	ctxCartSession contextKey = iota
	ctxRequestID
)

// CartSessionFromContext returns the cart session id set by CartSession.
func CartSessionFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxCartSession)
}

func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return withValue(ctx, ctxCartSession, sessionID)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRequestID)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
