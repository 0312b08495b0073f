package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/crystallogic/accounts/cmd/app/commands"
	"github.com/crystallogic/accounts/internal/app"
	"github.com/crystallogic/accounts/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "migrate-rollback",
			Usage: "Rollback database migrations",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "steps",
					Aliases: []string{"s"},
					Value:   1,
					Usage:   "Number of migration steps to rollback",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunRollbackMigrations(
					container.Logger(),
					cfg.DBDriver,
					cfg.DBConnectionString,
					int(cmd.Int("steps")),
				)
			},
		},
		{
			Name:  "flush-cache",
			Usage: "Remove every entry from the response cache",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				responseCache, err := container.ResponseCache()
				if err != nil {
					return err
				}

				return commands.RunFlushCache(
					ctx,
					responseCache,
					container.Logger(),
					commands.DefaultIO().Writer,
				)
			},
		},
	}
}
