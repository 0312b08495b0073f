// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
	authUseCase "github.com/crystallogic/accounts/internal/auth/usecase"
	apperrors "github.com/crystallogic/accounts/internal/errors"
	"github.com/crystallogic/accounts/internal/httputil"
	userDomain "github.com/crystallogic/accounts/internal/user/domain"
)

// AuthenticationMiddleware authenticates requests via a Bearer token in the
// Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Validates the token using authUseCase.Authenticate()
// 3. Stores the authenticated user and the raw token in the request context
// 4. Allows downstream handlers to access them via GetUser() and GetToken()
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Structurally invalid token → 400 Bad Request
//   - Expired or revoked token → 401 Unauthorized
func AuthenticationMiddleware(
	useCase authUseCase.AuthUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, authDomain.ErrMissingToken, logger)
			c.Abort()
			return
		}

		// Parse Bearer token (case-insensitive)
		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, authDomain.ErrMissingToken, logger)
			c.Abort()
			return
		}

		token := authHeader[len(bearerPrefix):]
		if token == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, authDomain.ErrMissingToken, logger)
			c.Abort()
			return
		}

		// Authenticate the token
		user, err := useCase.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		// Store authenticated user and raw token in context
		ctx := WithUser(c.Request.Context(), user)
		ctx = WithToken(ctx, token)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("user_id", user.ID.String()),
			slog.String("username", user.Username))

		c.Next()
	}
}

// RequireActiveMiddleware rejects requests from accounts that have not been
// activated.
//
// MUST be used after AuthenticationMiddleware. A valid token for an inactive
// account gets 401, the same status a failed login would return.
func RequireActiveMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c.Request.Context())
		if !ok || user == nil {
			logger.Error("active check: no authenticated user in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !user.IsActive {
			logger.Debug("active check failed: inactive account",
				slog.String("username", user.Username))
			httputil.HandleErrorGin(c, userDomain.ErrUserInactive, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
