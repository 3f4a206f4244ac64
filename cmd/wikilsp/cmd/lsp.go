package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wikilsp/wikilsp/internal/lspserver"
)

func lspCommand() *cli.Command {
	return &cli.Command{
		Name:  "lsp",
		Usage: "Run the Language Server over stdio",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "stdio",
				Usage: "Communicate over stdin/stdout (the only supported transport)",
				Value: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.Bool("stdio") {
				return fmt.Errorf("wikilsp lsp: only --stdio transport is supported")
			}
			return lspserver.New().RunStdio(ctx)
		},
	}
}
