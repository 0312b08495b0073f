// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
	userDomain "github.com/crystallogic/accounts/internal/user/domain"
)

// MockAuthUseCase is a mock implementation of AuthUseCase for testing.
type MockAuthUseCase struct {
	mock.Mock
}

// Login mocks the Login method of AuthUseCase.
func (m *MockAuthUseCase) Login(
	ctx context.Context,
	input *authDomain.LoginInput,
) (*authDomain.IssuedToken, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.IssuedToken), args.Error(1)
}

// Authenticate mocks the Authenticate method of AuthUseCase.
func (m *MockAuthUseCase) Authenticate(ctx context.Context, token string) (*userDomain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// Logout mocks the Logout method of AuthUseCase.
func (m *MockAuthUseCase) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
