package auth

import (
	"context"

	"github.com/taskflow/taskflow/internal/model"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// UserIDFromContext returns the authenticated user ID.
// ok is false if the request is not authenticated.
func UserIDFromContext(ctx context.Context) (id int64, ok bool) {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return 0, false
	}
	return auth.UserID, true
}
