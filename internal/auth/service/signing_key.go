package service

import (
	"context"
	"encoding/base64"

	"gocloud.dev/secrets"

	"github.com/crystallogic/accounts/internal/config"
	apperrors "github.com/crystallogic/accounts/internal/errors"

	// Register KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// LoadSigningKey resolves the token signing key from configuration. When a
// KMS keeper URI is configured the encrypted key material is decrypted
// through it, otherwise the plain JWT_SECRET_KEY is used directly.
//
// Supported keeper URIs: gcpkms://, awskms://, azurekeyvault://,
// hashivault://, base64key://
func LoadSigningKey(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if cfg.JWTSigningKeyURI != "" && cfg.JWTEncryptedSecretKey != "" {
		return decryptSigningKey(ctx, cfg.JWTSigningKeyURI, cfg.JWTEncryptedSecretKey)
	}

	if cfg.JWTSecretKey == "" {
		return nil, apperrors.New("token signing key is not configured")
	}

	return []byte(cfg.JWTSecretKey), nil
}

func decryptSigningKey(ctx context.Context, keeperURI, encryptedKey string) ([]byte, error) {
	keeper, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open KMS keeper")
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decode encrypted signing key")
	}

	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decrypt signing key")
	}

	return key, nil
}
