package service

import (
	"strings"

	"github.com/allisson/go-pwdhash"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/crystallogic/accounts/internal/errors"
)

// passwordService implements PasswordService using Argon2id for new hashes
// while still verifying legacy bcrypt hashes carried over from earlier
// deployments.
type passwordService struct {
	hasher *pwdhash.PasswordHasher
}

// NewPasswordService creates a new PasswordService instance. Uses the
// Interactive policy, tuned for login-path latency.
func NewPasswordService() PasswordService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyInteractive),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &passwordService{
		hasher: hasher,
	}
}

// Hash hashes a plain text password using Argon2id.
func (s *passwordService) Hash(password string) (string, error) {
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return hashed, nil
}

// Verify compares a plain text password against a stored hash.
func (s *passwordService) Verify(password, hash string) bool {
	if isBcryptHash(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	ok, err := s.hasher.Verify([]byte(password), hash)
	if err != nil {
		return false
	}
	return ok
}

// NeedsRehash reports whether the hash should be upgraded to Argon2id.
func (s *passwordService) NeedsRehash(hash string) bool {
	return isBcryptHash(hash)
}

// isBcryptHash recognizes the bcrypt modular crypt prefixes.
func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
