package app

import (
	"fmt"

	userHTTP "github.com/crystallogic/accounts/internal/user/http"
	userRepository "github.com/crystallogic/accounts/internal/user/repository"
	userUsecase "github.com/crystallogic/accounts/internal/user/usecase"
)

// UserRepository returns the user repository based on database driver.
func (c *Container) UserRepository() (userUsecase.Repository, error) {
	var err error
	c.userRepoInit.Do(func() {
		c.userRepo, err = c.initUserRepository()
		if err != nil {
			c.initErrors["userRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// UserUseCase returns the user use case instance.
func (c *Container) UserUseCase() (userUsecase.UseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// UserHandler returns the user HTTP handler.
func (c *Container) UserHandler() (*userHTTP.UserHandler, error) {
	var err error
	c.userHandlerInit.Do(func() {
		c.userHandler, err = c.initUserHandler()
		if err != nil {
			c.initErrors["userHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userHandler"]; exists {
		return nil, storedErr
	}
	return c.userHandler, nil
}

// initUserRepository creates the user repository instance.
func (c *Container) initUserRepository() (userUsecase.Repository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return userRepository.NewMySQLUserRepository(db), nil
	case "postgres":
		return userRepository.NewPostgreSQLUserRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initUserUseCase creates the user use case with all its dependencies.
func (c *Container) initUserUseCase() (userUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for user use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for user use case: %w", err)
	}

	useCase := userUsecase.NewUserUseCase(txManager, userRepo, c.PasswordService())

	return userUsecase.NewUserUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initUserHandler creates the user HTTP handler with its response cache.
func (c *Container) initUserHandler() (*userHTTP.UserHandler, error) {
	useCase, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for user handler: %w", err)
	}

	responseCache, err := c.ResponseCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get response cache for user handler: %w", err)
	}

	return userHTTP.NewUserHandler(useCase, responseCache, c.config.CacheTTL, c.Logger()), nil
}
