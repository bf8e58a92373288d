// Package auth provides authentication context helpers.
//
// It exists so both the middleware and handler packages can share the
// request-scoped user without an import cycle.
package auth

import (
	"context"
	"net/http"

	"github.com/mindgrove-app/mindgrove/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// userContextKey is the key used to store the authenticated user in context.
const userContextKey contextKey = "user"

// GetUser retrieves the authenticated user from the context.
// Returns nil if no user is authenticated.
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserFromRequest retrieves the authenticated user from the request context.
func GetUserFromRequest(r *http.Request) *domain.User {
	return GetUser(r.Context())
}

// SetUser stores a user in the context. Called by the auth middleware after
// validating a session token.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
