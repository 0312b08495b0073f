// Package service provides technical services for authentication operations.
//
// This package implements password hashing, bearer token signing and
// verification, and signing key resolution.
package service

import (
	"time"

	"github.com/google/uuid"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
)

// PasswordService defines operations for password hashing and verification.
type PasswordService interface {
	// Hash hashes a plain text password with Argon2id.
	Hash(password string) (string, error)

	// Verify compares a plain text password against a stored hash. Accepts
	// both Argon2id hashes and legacy bcrypt hashes, in constant time.
	Verify(password, hash string) bool

	// NeedsRehash reports whether the stored hash uses a legacy format and
	// should be replaced on the next successful login.
	NeedsRehash(hash string) bool
}

// TokenService defines operations for bearer token issuance and verification.
type TokenService interface {
	// Issue signs a new bearer token for the given account.
	Issue(userID uuid.UUID, username string) (*authDomain.IssuedToken, error)

	// Parse verifies a compact token and returns its claims. Returns
	// ErrTokenExpired, ErrTokenInvalidSignature or ErrTokenMalformed on
	// failure.
	Parse(tokenString string) (*authDomain.Claims, error)

	// Expiration returns the configured token lifetime.
	Expiration() time.Duration
}
