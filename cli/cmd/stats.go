package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/cli/reader"
	"github.com/justapithecus/datablast/cli/render"
	"github.com/justapithecus/datablast/cli/tui"
	"github.com/justapithecus/datablast/lode"
)

// StatsCommand returns the stats command.
// Stats shows the latest persisted metrics record.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show receive metrics of the latest (or a given) decode session",
		Flags: withFlags(ReadOnlyFlags(), ConfigFlags(), StorageFlags(), []cli.Flag{
			&cli.StringFlag{Name: "session-id", Usage: "Read metrics for a specific session"},
		}),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
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
	record, err := lode.QueryLatestMetrics(ctx, ds, c.String("session-id"))
	if errors.Is(err, lode.ErrNoMetricsFound) {
		return cli.Exit("no metrics found", exitUsage)
	}
	if err != nil {
		return storageExit("failed to read metrics", err)
	}

	snapshot, err := reader.ParseMetricsRecord(record)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to parse metrics record: %v", err), exitStorage)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsMetrics, snapshot)
	}
	return r.Render(snapshot)
}
