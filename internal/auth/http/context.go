// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"context"

	userDomain "github.com/crystallogic/accounts/internal/user/domain"
)

// userKey is a context key type for storing authenticated users.
type userKey struct{}

// tokenKey is a context key type for storing the raw bearer token.
type tokenKey struct{}

// WithUser stores an authenticated user in the context.
// Called by the authentication middleware after successful token validation.
func WithUser(ctx context.Context, user *userDomain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser retrieves the authenticated user from the context.
// Returns (user, true) if a user is present, or (nil, false) if not.
func GetUser(ctx context.Context) (*userDomain.User, bool) {
	user, ok := ctx.Value(userKey{}).(*userDomain.User)
	return user, ok
}

// WithToken stores the raw bearer token in the context. The logout handler
// needs the exact presented token to revoke it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// GetToken retrieves the raw bearer token from the context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok
}
