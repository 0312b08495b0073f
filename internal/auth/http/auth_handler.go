// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
	"github.com/crystallogic/accounts/internal/auth/http/dto"
	authUseCase "github.com/crystallogic/accounts/internal/auth/usecase"
	"github.com/crystallogic/accounts/internal/httputil"
	customValidation "github.com/crystallogic/accounts/internal/validation"
)

// AuthHandler handles HTTP requests for the token lifecycle.
type AuthHandler struct {
	authUseCase authUseCase.AuthUseCase
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler with required dependencies.
func NewAuthHandler(
	useCase authUseCase.AuthUseCase,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authUseCase: useCase,
		logger:      logger,
	}
}

// LoginHandler authenticates credentials and issues a bearer token.
// POST /v1/auth/token - No authentication required (this is the authentication endpoint).
// Accepts JSON or form-encoded bodies. Returns 200 OK with the signed token.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest

	// Parse and bind JSON or form body
	if err := c.ShouldBind(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// Call use case
	input := &authDomain.LoginInput{
		Username: req.Username,
		Password: req.Password,
		SourceIP: c.ClientIP(),
	}
	token, err := h.authUseCase.Login(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(time.Until(token.ExpiresAt).Seconds()),
	}

	c.JSON(http.StatusOK, response)
}

// LogoutHandler revokes the presented bearer token.
// POST /v1/auth/logout - Requires authentication.
// Returns 204 No Content on success. A redis outage returns 503 so the caller
// never believes a token was revoked when it was not.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	token, ok := GetToken(c.Request.Context())
	if !ok || token == "" {
		httputil.HandleErrorGin(c, authDomain.ErrMissingToken, h.logger)
		return
	}

	if err := h.authUseCase.Logout(c.Request.Context(), token); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
