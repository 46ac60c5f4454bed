package main

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/sobebarali/useHely-sub006/cmd/app/commands"
	"github.com/sobebarali/useHely-sub006/internal/app"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Serve the field and audit API until interrupted",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Apply pending schema migrations for the configured driver",
			Action: withContainer(func(_ context.Context, _ *cli.Command, c *app.Container, _ io.Writer) error {
				cfg := c.Config()
				return commands.RunMigrations(c.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			}),
		},
	}
}
