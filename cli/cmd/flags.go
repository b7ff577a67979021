// Package cmd provides CLI commands for the datablast binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inspect and stats.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// ReadOnlyFlags returns the shared output flags.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ConfigFlags returns the flags that locate configuration and set verbosity.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to datablast.yaml (default: $DATABLAST_CONFIG or ./datablast.yaml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// StorageFlags returns the flags selecting the Lode dataset.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "dataset", Usage: "Lode dataset ID (default: \"datablast\")"},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3 (default: fs)"},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (R2, MinIO)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force path-style S3 addressing"},
	}
}

// QueueFlags returns the flags selecting the Redis symbol queue.
func QueueFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "queue-url", Usage: "Redis URL of the symbol queue"},
		&cli.StringFlag{Name: "queue-key", Usage: "Redis list key (default: \"datablast:symbols\")"},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
