package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/crystallogic/accounts/internal/auth/domain"
)

var testSigningKey = []byte("test-signing-key-for-unit-tests")

func TestTokenService_Issue(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	userID := uuid.Must(uuid.NewV7())

	issued, err := svc.Issue(userID, "alice")

	require.NoError(t, err)
	assert.NotEmpty(t, issued.AccessToken)
	assert.Equal(t, "bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)
}

func TestTokenService_Parse(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	userID := uuid.Must(uuid.NewV7())

	t.Run("Success_RoundTrip", func(t *testing.T) {
		issued, err := svc.Issue(userID, "alice")
		require.NoError(t, err)

		claims, err := svc.Parse(issued.AccessToken)

		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("Error_Expired", func(t *testing.T) {
		expiredSvc := NewTokenService(testSigningKey, -time.Minute)
		issued, err := expiredSvc.Issue(userID, "alice")
		require.NoError(t, err)

		_, err = svc.Parse(issued.AccessToken)

		assert.ErrorIs(t, err, authDomain.ErrTokenExpired)
	})

	t.Run("Error_WrongKey", func(t *testing.T) {
		otherSvc := NewTokenService([]byte("a-different-signing-key"), time.Hour)
		issued, err := otherSvc.Issue(userID, "alice")
		require.NoError(t, err)

		_, err = svc.Parse(issued.AccessToken)

		assert.ErrorIs(t, err, authDomain.ErrTokenInvalidSignature)
	})

	t.Run("Error_Malformed", func(t *testing.T) {
		_, err := svc.Parse("not.a.token")

		assert.ErrorIs(t, err, authDomain.ErrTokenMalformed)
	})

	t.Run("Error_EmptyString", func(t *testing.T) {
		_, err := svc.Parse("")

		assert.ErrorIs(t, err, authDomain.ErrTokenMalformed)
	})

	t.Run("Error_MissingSubject", func(t *testing.T) {
		// Hand-roll a token signed with the right key but no subject claim.
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(testSigningKey)
		require.NoError(t, err)

		_, err = svc.Parse(signed)

		assert.ErrorIs(t, err, authDomain.ErrTokenMissingSubject)
	})

	t.Run("Error_WrongAlgorithm", func(t *testing.T) {
		// alg=none tokens must never verify.
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Parse(signed)

		assert.Error(t, err)
	})
}

func TestTokenService_Expiration(t *testing.T) {
	svc := NewTokenService(testSigningKey, 30*time.Minute)

	assert.Equal(t, 30*time.Minute, svc.Expiration())
}
