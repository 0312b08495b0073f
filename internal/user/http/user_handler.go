// Package http provides HTTP handlers for account management operations.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/crystallogic/accounts/internal/auth/http"
	"github.com/crystallogic/accounts/internal/cache"
	apperrors "github.com/crystallogic/accounts/internal/errors"
	"github.com/crystallogic/accounts/internal/httputil"
	"github.com/crystallogic/accounts/internal/user/domain"
	"github.com/crystallogic/accounts/internal/user/http/dto"
	"github.com/crystallogic/accounts/internal/user/usecase"
	customValidation "github.com/crystallogic/accounts/internal/validation"
)

const jsonContentType = "application/json; charset=utf-8"

// UserHandler handles account management HTTP requests. Read endpoints are
// served through the response cache; writes go straight to the use case.
type UserHandler struct {
	userUseCase usecase.UseCase
	cache       *cache.Cache
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(
	userUseCase usecase.UseCase,
	responseCache *cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
		cache:       responseCache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// CreateUserHandler registers a new account.
// POST /v1/users - No authentication required.
// New accounts start inactive and without administrator privileges.
// Returns 201 Created, or 409 Conflict for duplicate username/email.
func (h *UserHandler) CreateUserHandler(c *gin.Context) {
	var req dto.CreateUserRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	user, err := h.userUseCase.Create(c.Request.Context(), dto.ToCreateUserInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserResponse(user))
}

// ListUsersHandler returns a page of accounts.
// GET /v1/users - Administrators only.
// The response is cached compressed; the cache key carries the page bounds,
// so the authorization check runs before any cache access.
func (h *UserHandler) ListUsersHandler(c *gin.Context) {
	actor, ok := authHTTP.GetUser(c.Request.Context())
	if !ok || actor == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	// The cache is shared between callers, so the admin gate must hold
	// before the lookup.
	if !actor.IsAdmin {
		httputil.HandleErrorGin(c, domain.ErrAdminOnly, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	payload, err := h.cache.GetOrCompute(
		c.Request.Context(),
		"list_users",
		[]string{strconv.Itoa(offset), strconv.Itoa(limit)},
		cache.Options{TTL: h.cacheTTL, Compress: true},
		func(ctx context.Context) ([]byte, error) {
			users, err := h.userUseCase.List(ctx, actor, offset, limit)
			if err != nil {
				return nil, err
			}
			return json.Marshal(dto.ToListUsersResponse(users, offset, limit))
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, jsonContentType, payload)
}

// GetUserHandler returns a single account.
// GET /v1/users/:user_id - Self or administrator.
func (h *UserHandler) GetUserHandler(c *gin.Context) {
	actor, ok := authHTTP.GetUser(c.Request.Context())
	if !ok || actor == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// Same reasoning as the list endpoint: ownership must hold before the
	// shared cache is consulted.
	if !actor.CanActOn(userID) {
		httputil.HandleErrorGin(c, domain.ErrNotAllowed, h.logger)
		return
	}

	payload, err := h.cache.GetOrCompute(
		c.Request.Context(),
		"get_user",
		[]string{userID.String()},
		cache.Options{TTL: h.cacheTTL},
		func(ctx context.Context) ([]byte, error) {
			user, err := h.userUseCase.Get(ctx, actor, userID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(dto.ToUserResponse(user))
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, jsonContentType, payload)
}

// UpdateUserHandler applies a partial update to an account.
// PUT /v1/users/:user_id - Self or administrator; activation and privilege
// changes are administrator-only.
func (h *UserHandler) UpdateUserHandler(c *gin.Context) {
	actor, ok := authHTTP.GetUser(c.Request.Context())
	if !ok || actor == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	user, err := h.userUseCase.Update(c.Request.Context(), actor, userID, dto.ToUpdateUserInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.invalidateUser(c.Request.Context(), userID)

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// DeleteUserHandler removes an account.
// DELETE /v1/users/:user_id - Self or administrator.
// Returns 204 No Content on success.
func (h *UserHandler) DeleteUserHandler(c *gin.Context) {
	actor, ok := authHTTP.GetUser(c.Request.Context())
	if !ok || actor == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.userUseCase.Delete(c.Request.Context(), actor, userID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.invalidateUser(c.Request.Context(), userID)

	c.Status(http.StatusNoContent)
}

// ListUserIPsHandler returns the login source addresses recorded for an
// account, newest first.
// GET /v1/users/:user_id/ips - Self or administrator.
func (h *UserHandler) ListUserIPsHandler(c *gin.Context) {
	actor, ok := authHTTP.GetUser(c.Request.Context())
	if !ok || actor == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	ips, err := h.userUseCase.ListIPs(c.Request.Context(), actor, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToListIPsResponse(ips))
}

// invalidateUser drops the cached profile for id so the next read sees the
// write. List pages are left to expire with their TTL.
func (h *UserHandler) invalidateUser(ctx context.Context, id uuid.UUID) {
	if err := h.cache.Delete(ctx, cache.Key("get_user", id.String())); err != nil {
		h.logger.Warn("failed to invalidate cached user",
			slog.String("user_id", id.String()),
			slog.Any("error", err),
		)
	}
}
