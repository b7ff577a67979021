package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/types"
)

// NewApp builds the datablast CLI application.
// The caller sets ExitErrHandler and the I/O streams.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "datablast",
		Usage:   "Transfer files through a stream of QR code symbols",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Commands: []*cli.Command{
			EncodeCommand(),
			DecodeCommand(),
			InspectCommand(),
			ParseCommand(),
			ListCommand(),
			StatsCommand(),
			VersionCommand(commit),
		},
	}
}
