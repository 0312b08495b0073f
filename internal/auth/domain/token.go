// Package domain defines the authentication domain entities and types.
package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload carried by every issued bearer token. The subject is
// the username, UserID carries the account id.
type Claims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed bearer token together with its metadata.
type IssuedToken struct {
	// AccessToken is the signed compact JWT.
	AccessToken string
	// TokenType is always "bearer".
	TokenType string
	// ExpiresAt is the token expiry instant.
	ExpiresAt time.Time
}

// LoginInput carries the credentials presented to the token endpoint plus
// the source address they arrived from.
type LoginInput struct {
	Username string
	Password string
	SourceIP string
}
