// Package domain defines the core user domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/crystallogic/accounts/internal/errors"
)

// User represents an account in the system. Password always holds the hash,
// never the plaintext.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	IsActive  bool
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanActOn reports whether the user may read or modify the account with the
// given id. Users manage themselves, administrators manage everyone.
func (u *User) CanActOn(id uuid.UUID) bool {
	return u.IsAdmin || u.ID == id
}

// PublicIP is a source address observed on a successful login.
type PublicIP struct {
	ID        int64
	Address   string
	CreatedAt time.Time
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same username or email already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrUserInactive indicates the account exists but has not been activated.
	ErrUserInactive = errors.Wrap(errors.ErrUnauthorized, "user is inactive")

	// ErrNotAllowed indicates the acting user may not touch the target account.
	ErrNotAllowed = errors.Wrap(errors.ErrForbidden, "operation not allowed on this user")

	// ErrAdminOnly indicates the operation is restricted to administrators.
	ErrAdminOnly = errors.Wrap(errors.ErrForbidden, "operation requires administrator privileges")
)
