package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crystallogic/accounts/internal/metrics"
	"github.com/crystallogic/accounts/internal/user/domain"
)

// userUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type userUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUserUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewUserUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &userUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *userUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "user", operation, status)
	u.metrics.RecordDuration(ctx, "user", operation, time.Since(start), status)
}

// Create records metrics for user registration operations.
func (u *userUseCaseWithMetrics) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.Create(ctx, input)
	u.record(ctx, "user_create", start, err)
	return user, err
}

// Get records metrics for user retrieval operations.
func (u *userUseCaseWithMetrics) Get(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.Get(ctx, actor, id)
	u.record(ctx, "user_get", start, err)
	return user, err
}

// List records metrics for user list operations.
func (u *userUseCaseWithMetrics) List(
	ctx context.Context,
	actor *domain.User,
	offset, limit int,
) ([]*domain.User, error) {
	start := time.Now()
	users, err := u.next.List(ctx, actor, offset, limit)
	u.record(ctx, "user_list", start, err)
	return users, err
}

// Update records metrics for user update operations.
func (u *userUseCaseWithMetrics) Update(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
	input UpdateUserInput,
) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.Update(ctx, actor, id, input)
	u.record(ctx, "user_update", start, err)
	return user, err
}

// Delete records metrics for user deletion operations.
func (u *userUseCaseWithMetrics) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	start := time.Now()
	err := u.next.Delete(ctx, actor, id)
	u.record(ctx, "user_delete", start, err)
	return err
}

// ListIPs records metrics for login address listing operations.
func (u *userUseCaseWithMetrics) ListIPs(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
) ([]*domain.PublicIP, error) {
	start := time.Now()
	ips, err := u.next.ListIPs(ctx, actor, id)
	u.record(ctx, "user_list_ips", start, err)
	return ips, err
}

// GetByUsername passes through without metrics, it only serves the auth flow
// which records its own operations.
func (u *userUseCaseWithMetrics) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return u.next.GetByUsername(ctx, username)
}

// EnsureAdmin records metrics for administrator seeding operations.
func (u *userUseCaseWithMetrics) EnsureAdmin(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.EnsureAdmin(ctx, input)
	u.record(ctx, "ensure_admin", start, err)
	return user, err
}
