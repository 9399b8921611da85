package api

import "context"

type ctxKey string

const userKey ctxKey = "user"

// WithUser attaches an already authenticated user id to ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFromContext returns the user id set by WithUser, or "" when the caller
// is anonymous.
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return ""
}
