// Command app runs the encrypted field store: the HTTP API, schema migrations,
// master key lifecycle and audit chain maintenance.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	root := &cli.Command{
		Name:     "app",
		Usage:    "Encrypted field store and tamper-evident audit chains",
		Version:  version,
		Writer:   os.Stdout,
		Commands: getCommands(version),
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
