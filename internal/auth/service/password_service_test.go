package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordService()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		hash, err := svc.Hash("SecurePass123")
		require.NoError(t, err)
		assert.NotEqual(t, "SecurePass123", hash)

		assert.True(t, svc.Verify("SecurePass123", hash))
		assert.False(t, svc.Verify("WrongPass123", hash))
	})

	t.Run("Success_HashesAreSalted", func(t *testing.T) {
		first, err := svc.Hash("SecurePass123")
		require.NoError(t, err)
		second, err := svc.Hash("SecurePass123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("Error_GarbageHash", func(t *testing.T) {
		assert.False(t, svc.Verify("SecurePass123", "not-a-hash"))
	})
}

func TestPasswordService_LegacyBcrypt(t *testing.T) {
	svc := NewPasswordService()

	legacy, err := bcrypt.GenerateFromPassword([]byte("SecurePass123"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Success_VerifiesBcryptHash", func(t *testing.T) {
		assert.True(t, svc.Verify("SecurePass123", string(legacy)))
		assert.False(t, svc.Verify("WrongPass123", string(legacy)))
	})

	t.Run("Success_BcryptNeedsRehash", func(t *testing.T) {
		assert.True(t, svc.NeedsRehash(string(legacy)))
	})

	t.Run("Success_Argon2DoesNotNeedRehash", func(t *testing.T) {
		hash, err := svc.Hash("SecurePass123")
		require.NoError(t, err)

		assert.False(t, svc.NeedsRehash(hash))
	})
}
