package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/cli/reader"
	"github.com/justapithecus/datablast/cli/render"
	"github.com/justapithecus/datablast/cli/tui"
	"github.com/justapithecus/datablast/iox"
)

// InspectCommand returns the inspect command.
// Inspect replays a capture file without writing to storage.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Report per-transfer progress of a capture file",
		ArgsUsage: "<capture-file|->",
		Flags:     withFlags(ReadOnlyFlags(), ConfigFlags()),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("capture file required", exitUsage)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg, "")
	if err != nil {
		return err
	}

	var in io.Reader = c.App.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot open %s: %v", path, err), exitUsage)
		}
		defer iox.DiscardClose(f)
		in = f
	}

	resp, err := reader.InspectCapture(c.Context, in, path, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectCapture, resp)
	}
	return r.Render(resp)
}
