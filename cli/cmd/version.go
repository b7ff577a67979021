package cmd

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/adapter"
	"github.com/justapithecus/datablast/cli/render"
	"github.com/justapithecus/datablast/symbol"
	"github.com/justapithecus/datablast/types"
)

// VersionResponse identifies the binary and the wire contracts it speaks.
type VersionResponse struct {
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	ContractVersion string `json:"contract_version"`
	SymbolVersion   int    `json:"symbol_version"`
	GoVersion       string `json:"go_version"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("version has no TUI view", exitUsage)
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			return r.Render(VersionResponse{
				Version:         types.Version,
				Commit:          commit,
				ContractVersion: adapter.ContractVersion,
				SymbolVersion:   symbol.Version,
				GoVersion:       runtime.Version(),
			})
		},
	}
}
