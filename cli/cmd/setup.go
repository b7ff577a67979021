package cmd

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/adapter"
	redisadapter "github.com/justapithecus/datablast/adapter/redis"
	"github.com/justapithecus/datablast/adapter/webhook"
	"github.com/justapithecus/datablast/cli/config"
	"github.com/justapithecus/datablast/lode"
	"github.com/justapithecus/datablast/log"
	"github.com/justapithecus/datablast/metrics"
	redisqueue "github.com/justapithecus/datablast/source/redis"
)

// Exit codes shared by every command.
const (
	exitSuccess    = 0
	exitUsage      = 1
	exitIncomplete = 2
	exitIntegrity  = 3
	exitStorage    = 4
)

// DefaultStoragePath is the fs storage root when neither flag nor config sets one.
const DefaultStoragePath = "datablast-data"

// readTimeout bounds storage reads of list and stats.
const readTimeout = 30 * time.Second

// loadConfig resolves datablast.yaml and the DATABLAST_* environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	cfg, err := config.Resolve(c.String("config"), env)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return cfg, nil
}

// newLogger builds the command logger on the app's error writer.
// --log-level beats the config value; the default is info.
func newLogger(c *cli.Context, cfg *config.Config, sessionID string) (*log.Logger, error) {
	level, err := log.ParseLevel(cmp.Or(c.String("log-level"), cfg.LogLevel, "info"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	var w io.Writer = os.Stderr
	if c.App != nil && c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	return log.NewLoggerWithWriter(sessionID, level, w), nil
}

// storageChoice holds the resolved storage settings.
type storageChoice struct {
	dataset   string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

func resolveStorage(c *cli.Context, cfg *config.Config) (storageChoice, error) {
	s := storageChoice{
		dataset:   cmp.Or(c.String("dataset"), cfg.Storage.Dataset, lode.DefaultDataset),
		backend:   cmp.Or(c.String("storage-backend"), cfg.Storage.Backend, "fs"),
		path:      cmp.Or(c.String("storage-path"), cfg.Storage.Path),
		region:    cmp.Or(c.String("storage-region"), cfg.Storage.Region),
		endpoint:  cmp.Or(c.String("storage-endpoint"), cfg.Storage.Endpoint),
		pathStyle: c.Bool("storage-s3-path-style") || cfg.Storage.S3PathStyle,
	}
	switch s.backend {
	case "fs":
		if s.path == "" {
			s.path = DefaultStoragePath
		}
	case "s3":
		if s.path == "" {
			return s, cli.Exit("--storage-path (bucket/prefix) is required for the s3 backend", exitUsage)
		}
	default:
		return s, cli.Exit(fmt.Sprintf("unsupported storage-backend: %s (must be fs or s3)", s.backend), exitUsage)
	}
	return s, nil
}

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.pathStyle,
	}
}

// buildClient creates the write-side Lode client for a decode session.
func buildClient(ctx context.Context, s storageChoice, cfg lode.Config, collector *metrics.Collector) (*lode.Client, error) {
	switch s.backend {
	case "s3":
		return lode.NewS3Client(ctx, cfg, s.s3Config(), collector)
	default:
		return lode.NewFSClient(cfg, s.path, collector)
	}
}

// buildReadDataset creates a Lode Dataset for the read-only commands.
func buildReadDataset(ctx context.Context, s storageChoice) (lodelibrary.Dataset, error) {
	switch s.backend {
	case "s3":
		return lode.NewReadDatasetS3(ctx, s.dataset, s.s3Config())
	default:
		return lode.NewReadDatasetFS(s.dataset, s.path)
	}
}

// adapterChoice holds the resolved adapter settings.
type adapterChoice struct {
	kind    string
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries *int
}

func resolveAdapter(c *cli.Context, cfg *config.Config) adapterChoice {
	a := adapterChoice{
		kind:    cmp.Or(c.String("adapter"), cfg.Adapter.Type),
		url:     cmp.Or(c.String("adapter-url"), cfg.Adapter.URL),
		channel: cmp.Or(c.String("adapter-channel"), cfg.Adapter.Channel),
		headers: cfg.Adapter.Headers,
		timeout: cfg.Adapter.Timeout.Duration,
		retries: cfg.Adapter.Retries,
	}
	if c.IsSet("adapter-retries") {
		n := c.Int("adapter-retries")
		a.retries = &n
	}
	return a
}

// buildAdapter returns nil when no adapter is configured.
func buildAdapter(a adapterChoice) (adapter.Adapter, error) {
	retries := webhook.DefaultRetries
	if a.retries != nil {
		retries = *a.retries
	}
	switch a.kind {
	case "":
		return nil, nil
	case "webhook":
		wh, err := webhook.New(webhook.Config{
			URL:     a.url,
			Headers: a.headers,
			Timeout: a.timeout,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return wh, nil
	case "redis":
		rd, err := redisadapter.New(redisadapter.Config{
			URL:     a.url,
			Channel: a.channel,
			Timeout: a.timeout,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return rd, nil
	default:
		return nil, fmt.Errorf("unsupported adapter: %s (must be webhook or redis)", a.kind)
	}
}

// openQueue returns nil when no queue URL is configured.
func openQueue(c *cli.Context, cfg *config.Config) (*redisqueue.Queue, error) {
	url := cmp.Or(c.String("queue-url"), cfg.Queue.URL)
	if url == "" {
		return nil, nil
	}
	return redisqueue.New(redisqueue.Config{
		URL: url,
		Key: cmp.Or(c.String("queue-key"), cfg.Queue.Key),
	})
}

// storageExit maps a storage or publish failure to exit code 4.
func storageExit(msg string, err error) error {
	return cli.Exit(fmt.Sprintf("%s: %v", msg, err), exitStorage)
}
