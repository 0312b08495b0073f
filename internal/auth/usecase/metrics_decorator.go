package usecase

import (
	"context"
	"time"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
	"github.com/crystallogic/accounts/internal/metrics"
	userDomain "github.com/crystallogic/accounts/internal/user/domain"
)

// authUseCaseWithMetrics decorates AuthUseCase with metrics instrumentation.
type authUseCaseWithMetrics struct {
	next    AuthUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthUseCaseWithMetrics wraps an AuthUseCase with metrics recording.
func NewAuthUseCaseWithMetrics(useCase AuthUseCase, m metrics.BusinessMetrics) AuthUseCase {
	return &authUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *authUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "auth", operation, status)
	a.metrics.RecordDuration(ctx, "auth", operation, time.Since(start), status)
}

// Login records metrics for credential authentication operations.
func (a *authUseCaseWithMetrics) Login(
	ctx context.Context,
	input *authDomain.LoginInput,
) (*authDomain.IssuedToken, error) {
	start := time.Now()
	token, err := a.next.Login(ctx, input)
	a.record(ctx, "login", start, err)
	return token, err
}

// Authenticate records metrics for token verification operations.
func (a *authUseCaseWithMetrics) Authenticate(ctx context.Context, token string) (*userDomain.User, error) {
	start := time.Now()
	user, err := a.next.Authenticate(ctx, token)
	a.record(ctx, "authenticate", start, err)
	return user, err
}

// Logout records metrics for token revocation operations.
func (a *authUseCaseWithMetrics) Logout(ctx context.Context, token string) error {
	start := time.Now()
	err := a.next.Logout(ctx, token)
	a.record(ctx, "logout", start, err)
	return err
}
