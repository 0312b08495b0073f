package app

import (
	"context"
	"fmt"

	authHTTP "github.com/crystallogic/accounts/internal/auth/http"
	authRepository "github.com/crystallogic/accounts/internal/auth/repository"
	authService "github.com/crystallogic/accounts/internal/auth/service"
	authUseCase "github.com/crystallogic/accounts/internal/auth/usecase"
)

// PasswordService returns the password hashing service.
func (c *Container) PasswordService() authService.PasswordService {
	c.passwordServiceInit.Do(func() {
		c.passwordService = authService.NewPasswordService()
	})
	return c.passwordService
}

// TokenService returns the bearer token service. The signing key is loaded
// once, decrypting through the configured KMS keeper when one is set.
func (c *Container) TokenService() (authService.TokenService, error) {
	var err error
	c.tokenServiceInit.Do(func() {
		c.tokenService, err = c.initTokenService()
		if err != nil {
			c.initErrors["tokenService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenService"]; exists {
		return nil, storedErr
	}
	return c.tokenService, nil
}

// BlacklistRepository returns the token revocation repository.
func (c *Container) BlacklistRepository() (authUseCase.BlacklistRepository, error) {
	var err error
	c.blacklistRepoInit.Do(func() {
		c.blacklistRepo, err = c.initBlacklistRepository()
		if err != nil {
			c.initErrors["blacklistRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["blacklistRepo"]; exists {
		return nil, storedErr
	}
	return c.blacklistRepo, nil
}

// AuthUseCase returns the auth use case.
func (c *Container) AuthUseCase() (authUseCase.AuthUseCase, error) {
	var err error
	c.authUseCaseInit.Do(func() {
		c.authUC, err = c.initAuthUseCase()
		if err != nil {
			c.initErrors["authUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authUseCase"]; exists {
		return nil, storedErr
	}
	return c.authUC, nil
}

// AuthHandler returns the auth HTTP handler.
func (c *Container) AuthHandler() (*authHTTP.AuthHandler, error) {
	var err error
	c.authHandlerInit.Do(func() {
		c.authHandler, err = c.initAuthHandler()
		if err != nil {
			c.initErrors["authHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authHandler"]; exists {
		return nil, storedErr
	}
	return c.authHandler, nil
}

// initTokenService loads the signing key and creates the token service.
func (c *Container) initTokenService() (authService.TokenService, error) {
	signingKey, err := authService.LoadSigningKey(context.Background(), c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load token signing key: %w", err)
	}
	return authService.NewTokenService(signingKey, c.config.JWTExpiration), nil
}

// initBlacklistRepository creates the redis-backed revocation repository.
func (c *Container) initBlacklistRepository() (authUseCase.BlacklistRepository, error) {
	client, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for blacklist repository: %w", err)
	}
	return authRepository.NewRedisBlacklistRepository(client, c.config.BlacklistTTL, c.retryPolicy()), nil
}

// initAuthUseCase creates the auth use case with all its dependencies.
func (c *Container) initAuthUseCase() (authUseCase.AuthUseCase, error) {
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for auth use case: %w", err)
	}

	blacklistRepo, err := c.BlacklistRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist repository for auth use case: %w", err)
	}

	tokenService, err := c.TokenService()
	if err != nil {
		return nil, fmt.Errorf("failed to get token service for auth use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for auth use case: %w", err)
	}

	useCase := authUseCase.NewAuthUseCase(
		userRepo,
		blacklistRepo,
		c.PasswordService(),
		tokenService,
		c.Logger(),
	)

	return authUseCase.NewAuthUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initAuthHandler creates the auth HTTP handler.
func (c *Container) initAuthHandler() (*authHTTP.AuthHandler, error) {
	useCase, err := c.AuthUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth use case for auth handler: %w", err)
	}
	return authHTTP.NewAuthHandler(useCase, c.Logger()), nil
}
