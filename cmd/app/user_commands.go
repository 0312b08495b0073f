package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/crystallogic/accounts/cmd/app/commands"
	"github.com/crystallogic/accounts/internal/app"
	"github.com/crystallogic/accounts/internal/config"
	userUsecase "github.com/crystallogic/accounts/internal/user/usecase"
)

func getUserCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-admin",
			Usage: "Create the seed administrator account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "username",
					Aliases: []string{"u"},
					Usage:   "Administrator username (defaults to ADMIN_USERNAME)",
				},
				&cli.StringFlag{
					Name:    "email",
					Aliases: []string{"e"},
					Usage:   "Administrator email (defaults to ADMIN_EMAIL)",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Administrator password (defaults to ADMIN_PASSWORD)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				input := userUsecase.CreateUserInput{
					Username:  cfg.AdminUsername,
					Email:     cfg.AdminEmail,
					FirstName: cfg.AdminFirstName,
					LastName:  cfg.AdminLastName,
					Password:  cfg.AdminPassword,
				}
				if v := cmd.String("username"); v != "" {
					input.Username = v
				}
				if v := cmd.String("email"); v != "" {
					input.Email = v
				}
				if v := cmd.String("password"); v != "" {
					input.Password = v
				}

				return commands.RunCreateAdmin(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					input,
				)
			},
		},
	}
}
