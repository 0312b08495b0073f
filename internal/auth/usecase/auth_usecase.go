// Package usecase implements business logic orchestration for authentication operations.
package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
	authService "github.com/crystallogic/accounts/internal/auth/service"
	apperrors "github.com/crystallogic/accounts/internal/errors"
	userDomain "github.com/crystallogic/accounts/internal/user/domain"
)

// UserRepository defines the user persistence operations the authentication
// flow depends on.
type UserRepository interface {
	// GetByUsername retrieves a user by username. Returns ErrUserNotFound if not found.
	GetByUsername(ctx context.Context, username string) (*userDomain.User, error)

	// Update modifies an existing user in the repository.
	Update(ctx context.Context, user *userDomain.User) error

	// RecordLoginIP associates a source address with a user account.
	RecordLoginIP(ctx context.Context, userID uuid.UUID, address string) error
}

// BlacklistRepository defines operations for the token revocation list.
type BlacklistRepository interface {
	// Revoke adds a token to the revocation list until it would have expired.
	Revoke(ctx context.Context, token string) error

	// IsRevoked reports whether a token is on the revocation list.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthUseCase defines business logic operations for the bearer token lifecycle.
type AuthUseCase interface {
	// Login authenticates a user by credentials and issues a bearer token.
	//
	// Returns ErrInvalidCredentials for both unknown usernames and wrong
	// passwords to prevent user enumeration, and ErrUserInactive for accounts
	// that exist but have not been activated.
	Login(ctx context.Context, input *authDomain.LoginInput) (*authDomain.IssuedToken, error)

	// Authenticate validates a bearer token and returns the account it was
	// issued to. Returns ErrMissingToken for an empty token, the token
	// service's parse errors for structural failures, ErrTokenRevoked for
	// blacklisted tokens and ErrInvalidCredentials when the subject account
	// no longer exists.
	Authenticate(ctx context.Context, token string) (*userDomain.User, error)

	// Logout places the token on the revocation list. Fails closed: the
	// caller must treat an error as the token still being valid.
	Logout(ctx context.Context, token string) error
}

// authUseCase implements AuthUseCase.
type authUseCase struct {
	userRepo        UserRepository
	blacklistRepo   BlacklistRepository
	passwordService authService.PasswordService
	tokenService    authService.TokenService
	logger          *slog.Logger
}

// Login authenticates the credentials and issues a new bearer token.
//
// On success the login also performs two best-effort side operations that
// never fail the login itself: legacy password hashes are upgraded to the
// current format, and the source address is recorded against the account.
func (a *authUseCase) Login(
	ctx context.Context,
	input *authDomain.LoginInput,
) (*authDomain.IssuedToken, error) {
	// Get the user by username
	user, err := a.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		// If user not found, return generic error to prevent enumeration
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Verify the password
	if !a.passwordService.Verify(input.Password, user.Password) {
		return nil, authDomain.ErrInvalidCredentials
	}

	// Check if the account is active
	if !user.IsActive {
		return nil, userDomain.ErrUserInactive
	}

	// Upgrade legacy password hashes on successful login
	if a.passwordService.NeedsRehash(user.Password) {
		if newHash, hashErr := a.passwordService.Hash(input.Password); hashErr == nil {
			user.Password = newHash
			if updateErr := a.userRepo.Update(ctx, user); updateErr != nil {
				a.logger.Warn("failed to upgrade password hash",
					slog.String("username", user.Username),
					slog.String("error", updateErr.Error()),
				)
			}
		}
	}

	// Record the source address, best effort
	if input.SourceIP != "" {
		if ipErr := a.userRepo.RecordLoginIP(ctx, user.ID, input.SourceIP); ipErr != nil {
			a.logger.Warn("failed to record login ip",
				slog.String("username", user.Username),
				slog.String("error", ipErr.Error()),
			)
		}
	}

	// Sign a new token
	return a.tokenService.Issue(user.ID, user.Username)
}

// Authenticate validates a bearer token and resolves its account.
//
// The revocation list check degrades gracefully: if the list is unreachable
// the token is treated as not revoked, so a Redis outage does not lock every
// user out. Logout takes the opposite stance and fails closed.
func (a *authUseCase) Authenticate(ctx context.Context, token string) (*userDomain.User, error) {
	if token == "" {
		return nil, authDomain.ErrMissingToken
	}

	// Verify signature and expiry
	claims, err := a.tokenService.Parse(token)
	if err != nil {
		return nil, err
	}

	// Check the revocation list
	revoked, err := a.blacklistRepo.IsRevoked(ctx, token)
	if err != nil {
		a.logger.Warn("revocation list unavailable, accepting token",
			slog.String("error", err.Error()),
		)
	} else if revoked {
		return nil, authDomain.ErrTokenRevoked
	}

	// Resolve the subject account
	user, err := a.userRepo.GetByUsername(ctx, claims.Subject)
	if err != nil {
		// Token is valid but the account is gone, return generic error
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	return user, nil
}

// Logout revokes the token. Errors from the revocation list propagate so the
// caller never reports a logout that did not happen.
func (a *authUseCase) Logout(ctx context.Context, token string) error {
	if token == "" {
		return authDomain.ErrMissingToken
	}
	return a.blacklistRepo.Revoke(ctx, token)
}

// NewAuthUseCase creates a new AuthUseCase with the provided dependencies.
func NewAuthUseCase(
	userRepo UserRepository,
	blacklistRepo BlacklistRepository,
	passwordService authService.PasswordService,
	tokenService authService.TokenService,
	logger *slog.Logger,
) AuthUseCase {
	return &authUseCase{
		userRepo:        userRepo,
		blacklistRepo:   blacklistRepo,
		passwordService: passwordService,
		tokenService:    tokenService,
		logger:          logger,
	}
}
