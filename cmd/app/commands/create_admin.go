package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	userUsecase "github.com/crystallogic/accounts/internal/user/usecase"
)

// RunCreateAdmin creates the seed administrator account if it does not exist
// yet. The account is created active with administrator privileges; an
// existing account with the same username is left untouched.
//
// Requirements: Database must be migrated and accessible.
func RunCreateAdmin(
	ctx context.Context,
	userUseCase userUsecase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	input userUsecase.CreateUserInput,
) error {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return fmt.Errorf("admin username, email and password are required")
	}

	logger.Info("creating administrator account", slog.String("username", input.Username))

	user, err := userUseCase.EnsureAdmin(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create administrator account: %w", err)
	}

	fmt.Fprintf(writer, "Administrator account ready\n")
	fmt.Fprintf(writer, "ID:       %s\n", user.ID)
	fmt.Fprintf(writer, "Username: %s\n", user.Username)
	fmt.Fprintf(writer, "Email:    %s\n", user.Email)

	logger.Info("administrator account ready",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)

	return nil
}
