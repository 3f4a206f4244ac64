package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wikilsp/wikilsp/internal/version"
)

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "wikilsp",
		Usage:   "A Language Server for Markdown note collections",
		Version: version.Version(),
		Description: `wikilsp indexes a workspace of Markdown notes, tracks headings and
cross-note [[wiki-links]], and serves editor queries (completion,
go-to-definition, hover, document symbols) while publishing diagnostics
for broken references.

Examples:
  wikilsp lsp --stdio
  wikilsp version --json`,
		Commands: []*cli.Command{
			lspCommand(),
			versionCommand(),
		},
	}
}

// Execute runs the CLI application.
func Execute() error {
	return NewApp().Run(context.Background(), os.Args)
}
