// Package redis publishes transfer completion events over Redis pub/sub.
//
// Events are JSON encoded to a configurable channel. Publishing retries
// with exponential backoff on connection errors.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/datablast/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "datablast:transfer_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// ErrNoSubscribers is returned when RequireSubscriber is set and nobody
// was listening on the channel.
var ErrNoSubscribers = errors.New("no subscribers received the event")

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: datablast:transfer_completed).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
	// RequireSubscriber treats a PUBLISH that reached nobody as a failure.
	RequireSubscriber bool
}

func (c *Config) applyDefaults() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("redis adapter requires a URL"))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must be >= 0, got %d", c.Retries))
	}
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return errors.Join(errs...)
}

// Adapter publishes transfer completion events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Channel returns the channel events are published to.
func (a *Adapter) Channel() string { return a.config.Channel }

// Publish sends the event as a JSON PUBLISH to the configured channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.TransferCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "redis", a.config.Retries, a.config.Backoff, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		receivers, err := a.client.Publish(publishCtx, a.config.Channel, body).Result()
		if err != nil {
			return err
		}
		if receivers == 0 && a.config.RequireSubscriber {
			return fmt.Errorf("channel %s: %w", a.config.Channel, ErrNoSubscribers)
		}
		return nil
	})
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
