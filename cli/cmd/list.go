package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/cli/render"
	"github.com/justapithecus/datablast/lode"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// ListCommand returns the list command.
// List returns the transfer records of a dataset.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List completed transfers recorded in storage",
		Flags: withFlags(ReadOnlyFlags(), ConfigFlags(), StorageFlags(), []cli.Flag{
			&cli.StringFlag{Name: "session-id", Usage: "Filter by session id"},
			&cli.StringFlag{Name: "day", Usage: "Filter by day (YYYY-MM-DD)"},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of transfers to return (0 = no limit)",
			},
		}),
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list command", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	storage, err := resolveStorage(c, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, readTimeout)
	defer cancel()

	ds, err := buildReadDataset(ctx, storage)
	if err != nil {
		return storageExit("failed to initialize storage reader", err)
	}
	records, err := lode.QueryTransfers(ctx, ds, lode.TransferFilter{
		SessionID: c.String("session-id"),
		Day:       c.String("day"),
	})
	if err != nil {
		return storageExit("failed to read transfers", err)
	}

	limit := c.Int("limit")
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if len(records) > listWarningThreshold && limit == 0 {
		fmt.Fprintf(c.App.ErrWriter, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(records))
	}
	return r.Render(records)
}
