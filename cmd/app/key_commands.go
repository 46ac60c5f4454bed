package main

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/sobebarali/useHely-sub006/cmd/app/commands"
	"github.com/sobebarali/useHely-sub006/internal/app"
)

func keyHexFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "key-hex",
		Usage:   "Hex encoded 32-byte key material (see create-master-key)",
		Sources: cli.EnvVars("MASTER_KEY_HEX"),
	}
}

func actorFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "actor",
		Aliases:  []string{"a"},
		Required: true,
		Usage:    "Operator recorded on the rotation ledger",
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate hex encoded master key material",
			Flags: []cli.Flag{formatFlag()},
			Action: withContainer(func(_ context.Context, cmd *cli.Command, c *app.Container, out io.Writer) error {
				return commands.RunCreateMasterKey(c.Logger(), out, cmd.String("format"))
			}),
		},
		{
			Name:  "bootstrap-key",
			Usage: "Install the first ACTIVE master key into an empty registry",
			Flags: []cli.Flag{
				keyHexFlag(),
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-gcm",
					Usage:   "Encryption algorithm to use (aes-gcm or chacha20-poly1305)",
				},
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container, out io.Writer) error {
				registry, err := c.KeyRegistry()
				if err != nil {
					return err
				}
				return commands.RunBootstrapKey(
					ctx, registry, c.Logger(), out,
					cmd.String("key-hex"), cmd.String("algorithm"), cmd.String("format"),
				)
			}),
		},
		{
			Name:  "rotate-key",
			Usage: "Promote new master key material and re-encrypt stored fields",
			Flags: []cli.Flag{keyHexFlag(), actorFlag(), formatFlag()},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container, out io.Writer) error {
				rotation, err := c.RotationUseCase()
				if err != nil {
					return err
				}
				return commands.RunRotateKey(
					ctx, rotation, c.Logger(), out,
					cmd.String("key-hex"), cmd.String("actor"), cmd.String("format"),
				)
			}),
		},
		{
			Name:  "resume-rotation",
			Usage: "Continue an interrupted re-encryption sweep from its checkpoint",
			Flags: []cli.Flag{actorFlag(), formatFlag()},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container, out io.Writer) error {
				rotation, err := c.RotationUseCase()
				if err != nil {
					return err
				}
				return commands.RunResumeRotation(ctx, rotation, c.Logger(), out, cmd.String("actor"), cmd.String("format"))
			}),
		},
		{
			Name:  "list-rotations",
			Usage: "List completed key rotations, newest first",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "offset", Value: 0, Usage: "Number of records to skip"},
				&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of records to show"},
				formatFlag(),
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container, out io.Writer) error {
				rotation, err := c.RotationUseCase()
				if err != nil {
					return err
				}
				return commands.RunListRotations(
					ctx, rotation, out,
					int(cmd.Int("offset")), int(cmd.Int("limit")), cmd.String("format"),
				)
			}),
		},
		{
			Name:  "decommission-key",
			Usage: "Erase a RETIRED master key that nothing references",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "id", Aliases: []string{"i"}, Required: true, Usage: "Master key id"},
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, c *app.Container, out io.Writer) error {
				registry, err := c.KeyRegistry()
				if err != nil {
					return err
				}
				return commands.RunDecommissionKey(ctx, registry, c.Logger(), out, cmd.Uint64("id"))
			}),
		},
	}
}
