package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authHTTP "github.com/crystallogic/accounts/internal/auth/http"
	"github.com/crystallogic/accounts/internal/cache"
	redisutil "github.com/crystallogic/accounts/internal/redis"
	"github.com/crystallogic/accounts/internal/user/domain"
	"github.com/crystallogic/accounts/internal/user/http/dto"
	"github.com/crystallogic/accounts/internal/user/usecase"
)

// MockUserUseCase is a mock implementation of usecase.UseCase for testing.
type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Create(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) List(ctx context.Context, actor *domain.User, offset, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, actor, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserUseCase) Update(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
	input usecase.UpdateUserInput,
) (*domain.User, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockUserUseCase) ListIPs(ctx context.Context, actor *domain.User, id uuid.UUID) ([]*domain.PublicIP, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PublicIP), args.Error(1)
}

func (m *MockUserUseCase) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) EnsureAdmin(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// setupUserTestHandler builds a handler backed by a miniredis cache.
func setupUserTestHandler(t *testing.T) (*UserHandler, *MockUserUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	retry := redisutil.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond}
	responseCache := cache.New(client, time.Minute, retry, logger, nil)

	mockUseCase := &MockUserUseCase{}
	handler := NewUserHandler(mockUseCase, responseCache, time.Minute, logger)

	return handler, mockUseCase
}

func adminActor() *domain.User {
	return &domain.User{
		ID:       uuid.Must(uuid.NewV7()),
		Username: "admin",
		IsActive: true,
		IsAdmin:  true,
	}
}

func regularActor() *domain.User {
	return &domain.User{
		ID:       uuid.Must(uuid.NewV7()),
		Username: "alice",
		IsActive: true,
	}
}

func storedUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.User{
		ID:        uuid.Must(uuid.NewV7()),
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
		Password:  "$argon2id$stored-hash",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// createTestContext creates a test Gin context, optionally with an
// authenticated actor in the request context.
func createTestContext(
	method, path string,
	body interface{},
	actor *domain.User,
) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(authHTTP.WithUser(req.Context(), actor))
	}
	c.Request = req

	return c, w
}

func TestUserHandler_CreateUserHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)

		request := dto.CreateUserRequest{
			Username:  "alice",
			Email:     "alice@example.com",
			FirstName: "Alice",
			LastName:  "Smith",
			Password:  "SecurePass123",
		}

		created := storedUser()
		created.IsActive = false

		mockUseCase.On("Create", mock.Anything, dto.ToCreateUserInput(request)).
			Return(created, nil).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/users", request, nil)

		handler.CreateUserHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.UserResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "alice", response.Username)
		assert.False(t, response.IsActive)

		// The hash never leaves the service
		assert.NotContains(t, w.Body.String(), "password")

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/users", nil, nil)
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("invalid json")))

		handler.CreateUserHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_MissingUsername", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		request := dto.CreateUserRequest{
			Email:    "alice@example.com",
			Password: "SecurePass123",
		}

		c, w := createTestContext(http.MethodPost, "/v1/users", request, nil)

		handler.CreateUserHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_DuplicateUser", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)

		request := dto.CreateUserRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "SecurePass123",
		}

		mockUseCase.On("Create", mock.Anything, mock.Anything).
			Return(nil, domain.ErrUserAlreadyExists).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/users", request, nil)

		handler.CreateUserHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestUserHandler_ListUsersHandler(t *testing.T) {
	t.Run("Success_AdminGetsPage", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		actor := adminActor()
		users := []*domain.User{storedUser()}

		mockUseCase.On("List", mock.Anything, actor, 0, 50).
			Return(users, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/users", nil, actor)

		handler.ListUsersHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListUsersResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Len(t, response.Users, 1)
		assert.Equal(t, "alice", response.Users[0].Username)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_SecondCallServedFromCache", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		actor := adminActor()
		users := []*domain.User{storedUser()}

		// Only one compute despite two requests
		mockUseCase.On("List", mock.Anything, actor, 0, 50).
			Return(users, nil).
			Once()

		c1, w1 := createTestContext(http.MethodGet, "/v1/users", nil, actor)
		handler.ListUsersHandler(c1)
		require.Equal(t, http.StatusOK, w1.Code)

		c2, w2 := createTestContext(http.MethodGet, "/v1/users", nil, actor)
		handler.ListUsersHandler(c2)
		require.Equal(t, http.StatusOK, w2.Code)

		assert.Equal(t, w1.Body.Bytes(), w2.Body.Bytes())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NonAdmin", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users", nil, regularActor())

		handler.ListUsersHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockUseCase.AssertNotCalled(t, "List")
	})

	t.Run("Error_NoActor", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users", nil, nil)

		handler.ListUsersHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_InvalidPagination", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users?limit=1000", nil, adminActor())

		handler.ListUsersHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUserHandler_GetUserHandler(t *testing.T) {
	setParam := func(c *gin.Context, id string) {
		c.Params = gin.Params{{Key: "user_id", Value: id}}
	}

	t.Run("Success_Self", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		mockUseCase.On("Get", mock.Anything, user, user.ID).
			Return(user, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c, user.ID.String())

		handler.GetUserHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.UserResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, user.ID, response.ID)
	})

	t.Run("Success_SecondCallServedFromCache", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		mockUseCase.On("Get", mock.Anything, user, user.ID).
			Return(user, nil).
			Once()

		c1, w1 := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c1, user.ID.String())
		handler.GetUserHandler(c1)
		require.Equal(t, http.StatusOK, w1.Code)

		c2, w2 := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c2, user.ID.String())
		handler.GetUserHandler(c2)
		require.Equal(t, http.StatusOK, w2.Code)

		assert.Equal(t, w1.Body.Bytes(), w2.Body.Bytes())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_OtherUserForbidden", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		otherID := uuid.Must(uuid.NewV7())

		c, w := createTestContext(http.MethodGet, "/v1/users/"+otherID.String(), nil, regularActor())
		setParam(c, otherID.String())

		handler.GetUserHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockUseCase.AssertNotCalled(t, "Get")
	})

	t.Run("Error_InvalidUUID", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users/not-a-uuid", nil, adminActor())
		setParam(c, "not-a-uuid")

		handler.GetUserHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		actor := adminActor()
		missingID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Get", mock.Anything, actor, missingID).
			Return(nil, domain.ErrUserNotFound).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/users/"+missingID.String(), nil, actor)
		setParam(c, missingID.String())

		handler.GetUserHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUserHandler_UpdateUserHandler(t *testing.T) {
	setParam := func(c *gin.Context, id string) {
		c.Params = gin.Params{{Key: "user_id", Value: id}}
	}

	t.Run("Success_SelfUpdate", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		email := "new@example.com"
		request := dto.UpdateUserRequest{Email: &email}
		updated := storedUser()
		updated.ID = user.ID
		updated.Email = email

		mockUseCase.On("Update", mock.Anything, user, user.ID, dto.ToUpdateUserInput(request)).
			Return(updated, nil).
			Once()

		c, w := createTestContext(http.MethodPut, "/v1/users/"+user.ID.String(), request, user)
		setParam(c, user.ID.String())

		handler.UpdateUserHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.UserResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, email, response.Email)
	})

	t.Run("Success_InvalidatesCachedProfile", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		email := "new@example.com"
		request := dto.UpdateUserRequest{Email: &email}
		updated := storedUser()
		updated.ID = user.ID
		updated.Email = email

		mockUseCase.On("Get", mock.Anything, user, user.ID).
			Return(user, nil).
			Once()
		mockUseCase.On("Update", mock.Anything, user, user.ID, dto.ToUpdateUserInput(request)).
			Return(updated, nil).
			Once()
		mockUseCase.On("Get", mock.Anything, user, user.ID).
			Return(updated, nil).
			Once()

		// Prime the cache with the pre-update profile.
		c1, w1 := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c1, user.ID.String())
		handler.GetUserHandler(c1)
		require.Equal(t, http.StatusOK, w1.Code)

		c2, w2 := createTestContext(http.MethodPut, "/v1/users/"+user.ID.String(), request, user)
		setParam(c2, user.ID.String())
		handler.UpdateUserHandler(c2)
		require.Equal(t, http.StatusOK, w2.Code)

		// The stale entry is dropped, the next read recomputes.
		c3, w3 := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c3, user.ID.String())
		handler.GetUserHandler(c3)
		require.Equal(t, http.StatusOK, w3.Code)

		var response dto.UserResponse
		err := json.Unmarshal(w3.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, email, response.Email)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_ActivationByNonAdmin", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		active := true
		request := dto.UpdateUserRequest{IsActive: &active}

		mockUseCase.On("Update", mock.Anything, user, user.ID, mock.Anything).
			Return(nil, domain.ErrAdminOnly).
			Once()

		c, w := createTestContext(http.MethodPut, "/v1/users/"+user.ID.String(), request, user)
		setParam(c, user.ID.String())

		handler.UpdateUserHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_EmptyEmail", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)
		user := storedUser()

		empty := ""
		request := dto.UpdateUserRequest{Email: &empty}

		c, w := createTestContext(http.MethodPut, "/v1/users/"+user.ID.String(), request, user)
		setParam(c, user.ID.String())

		handler.UpdateUserHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestUserHandler_DeleteUserHandler(t *testing.T) {
	setParam := func(c *gin.Context, id string) {
		c.Params = gin.Params{{Key: "user_id", Value: id}}
	}

	t.Run("Success_SelfDelete", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		mockUseCase.On("Delete", mock.Anything, user, user.ID).
			Return(nil).
			Once()

		c, w := createTestContext(http.MethodDelete, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c, user.ID.String())

		handler.DeleteUserHandler(c)
		// Handlers invoked outside an engine never flush a body-less status
		// to the recorder on their own.
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("Success_InvalidatesCachedProfile", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()

		mockUseCase.On("Get", mock.Anything, user, user.ID).
			Return(user, nil).
			Twice()
		mockUseCase.On("Delete", mock.Anything, user, user.ID).
			Return(nil).
			Once()

		c1, w1 := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c1, user.ID.String())
		handler.GetUserHandler(c1)
		require.Equal(t, http.StatusOK, w1.Code)

		c2, w2 := createTestContext(http.MethodDelete, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c2, user.ID.String())
		handler.DeleteUserHandler(c2)
		c2.Writer.WriteHeaderNow()
		require.Equal(t, http.StatusNoContent, w2.Code)

		// The cached profile is gone, a read goes back to the use case.
		c3, w3 := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil, user)
		setParam(c3, user.ID.String())
		handler.GetUserHandler(c3)
		require.Equal(t, http.StatusOK, w3.Code)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		actor := adminActor()
		missingID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Delete", mock.Anything, actor, missingID).
			Return(domain.ErrUserNotFound).
			Once()

		c, w := createTestContext(http.MethodDelete, "/v1/users/"+missingID.String(), nil, actor)
		setParam(c, missingID.String())

		handler.DeleteUserHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUserHandler_ListUserIPsHandler(t *testing.T) {
	setParam := func(c *gin.Context, id string) {
		c.Params = gin.Params{{Key: "user_id", Value: id}}
	}

	t.Run("Success_Self", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		user := storedUser()
		ips := []*domain.PublicIP{
			{ID: 1, Address: "203.0.113.7", CreatedAt: time.Now().UTC()},
			{ID: 2, Address: "198.51.100.23", CreatedAt: time.Now().UTC()},
		}

		mockUseCase.On("ListIPs", mock.Anything, user, user.ID).
			Return(ips, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String()+"/ips", nil, user)
		setParam(c, user.ID.String())

		handler.ListUserIPsHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListIPsResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		require.Len(t, response.IPs, 2)
		assert.Equal(t, "203.0.113.7", response.IPs[0].Address)
	})

	t.Run("Error_OtherUserForbidden", func(t *testing.T) {
		handler, mockUseCase := setupUserTestHandler(t)
		actor := regularActor()
		otherID := uuid.Must(uuid.NewV7())

		mockUseCase.On("ListIPs", mock.Anything, actor, otherID).
			Return(nil, domain.ErrNotAllowed).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/users/"+otherID.String()+"/ips", nil, actor)
		setParam(c, otherID.String())

		handler.ListUserIPsHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_InvalidUUID", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users/not-a-uuid/ips", nil, adminActor())
		setParam(c, "not-a-uuid")

		handler.ListUserIPsHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_NoActor", func(t *testing.T) {
		handler, _ := setupUserTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users/ips", nil, nil)

		handler.ListUserIPsHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
