package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
	apperrors "github.com/crystallogic/accounts/internal/errors"
)

// jwtTokenService implements TokenService using HS256-signed JWTs.
type jwtTokenService struct {
	signingKey []byte
	expiration time.Duration
}

// NewTokenService creates a TokenService signing with the given symmetric key.
func NewTokenService(signingKey []byte, expiration time.Duration) TokenService {
	return &jwtTokenService{
		signingKey: signingKey,
		expiration: expiration,
	}
}

// Issue signs a new bearer token. The subject is the username, the uid claim
// carries the account id.
func (s *jwtTokenService) Issue(userID uuid.UUID, username string) (*authDomain.IssuedToken, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := authDomain.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to sign token")
	}

	return &authDomain.IssuedToken{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// Parse verifies a compact token and returns its claims.
func (s *jwtTokenService) Parse(tokenString string) (*authDomain.Claims, error) {
	var claims authDomain.Claims

	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, authDomain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, authDomain.ErrTokenInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, authDomain.ErrTokenMalformed
		default:
			return nil, apperrors.Wrap(authDomain.ErrTokenMalformed, err.Error())
		}
	}
	if !token.Valid {
		return nil, authDomain.ErrTokenInvalidSignature
	}
	if claims.Subject == "" {
		return nil, authDomain.ErrTokenMissingSubject
	}

	return &claims, nil
}

// Expiration returns the configured token lifetime.
func (s *jwtTokenService) Expiration() time.Duration {
	return s.expiration
}
