package agent

import "context"

type retryKey struct{}

// WithRetry marks ctx as a retry attempt. Successful executions made under a
// retry context are recorded with status retried.
func WithRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, true)
}

// IsRetry reports whether ctx was marked by WithRetry.
func IsRetry(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey{}).(bool)
	return v
}
