package interceptors

import "context"

type contextKey struct{ name string }

var callerKey = contextKey{"caller"}

// WithCaller returns a context carrying the authenticated caller subject.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// GetCaller returns the caller from context and true if set; otherwise "", false.
func GetCaller(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKey).(string)
	return v, ok
}
