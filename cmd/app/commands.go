package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/sobebarali/useHely-sub006/internal/app"
	"github.com/sobebarali/useHely-sub006/internal/config"
)

func getCommands(version string) []*cli.Command {
	var cmds []*cli.Command
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getAuditCommands()...)
	return cmds
}

// containerAction is the body of a command that needs the dependency container.
type containerAction func(ctx context.Context, cmd *cli.Command, container *app.Container, out io.Writer) error

// withContainer builds a container from the environment for one command run
// and shuts it down when the command returns.
func withContainer(action containerAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container := app.NewContainer(config.Load())
		defer func() {
			if err := container.Shutdown(ctx); err != nil {
				container.Logger().Error("failed to shutdown container", slog.Any("error", err))
			}
		}()
		return action(ctx, cmd, container, cmd.Root().Writer)
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
