package middleware

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// IdentityKey stores the authenticated tenant binding.
	IdentityKey contextKey = "identity"
)

// Identity is the authenticated tenant binding attached to a request. The
// proxy consumes it; it never derives tenant or user from the request body.
type Identity struct {
	TenantID   string
	UserID     string
	TenantName string
	UserName   string
}

// GetIdentity extracts the tenant binding from the context. The second
// return is false for unauthenticated requests.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the tenant binding. Exposed for
// handler tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
