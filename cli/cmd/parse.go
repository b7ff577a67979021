package cmd

import (
	"bufio"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/cli/reader"
	"github.com/justapithecus/datablast/cli/render"
	"github.com/justapithecus/datablast/source"
)

// ParseCommand returns the parse command.
// Parse is a diagnostic for a single symbol string.
func ParseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse one symbol string and show its fields or error",
		ArgsUsage: "<symbol|->",
		Flags:     ReadOnlyFlags(),
		Action:    parseAction,
	}
}

func parseAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("symbol text required", exitUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for parse command", exitUsage)
	}

	text := c.Args().First()
	if text == "-" {
		sc := bufio.NewScanner(c.App.Reader)
		sc.Buffer(make([]byte, 0, 64*1024), source.MaxLineSize)
		text = ""
		if sc.Scan() {
			text = sc.Text()
		}
		if err := sc.Err(); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	resp := reader.ParseSymbol(strings.TrimRight(text, "\r\n"))
	if err := r.Render(resp); err != nil {
		return err
	}
	if !resp.Valid() {
		return cli.Exit("", exitUsage)
	}
	return nil
}
