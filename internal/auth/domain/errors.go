package domain

import (
	"github.com/crystallogic/accounts/internal/errors"
)

// Authentication errors.
var (
	// ErrInvalidCredentials indicates the username or password did not match.
	// Deliberately the same error for both cases so responses don't reveal
	// which accounts exist.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "incorrect username or password")

	// ErrMissingToken indicates no bearer token was presented.
	ErrMissingToken = errors.Wrap(errors.ErrUnauthorized, "missing bearer token")

	// ErrTokenExpired indicates the token was valid once but its lifetime is over.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token has expired")

	// ErrTokenRevoked indicates the token was invalidated by a logout.
	ErrTokenRevoked = errors.Wrap(errors.ErrUnauthorized, "token has been revoked")

	// ErrTokenMalformed indicates the token is not a well-formed JWT.
	ErrTokenMalformed = errors.Wrap(errors.ErrInvalidToken, "token is malformed")

	// ErrTokenInvalidSignature indicates the token signature did not verify.
	ErrTokenInvalidSignature = errors.Wrap(errors.ErrInvalidToken, "token signature is invalid")

	// ErrTokenMissingSubject indicates the token payload lacks a subject claim.
	ErrTokenMissingSubject = errors.Wrap(errors.ErrInvalidToken, "token has no subject")
)
