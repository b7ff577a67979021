// Package redis implements a Redis list-backed symbol queue.
//
// Capture workers (or the encode command) RPUSH raw symbol strings onto a
// list; the receiver BLPOPs them in order. The list decouples detection from
// decoding so neither side blocks the other.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/datablast/source"
)

// DefaultKey is the default list key.
const DefaultKey = "datablast:symbols"

// DefaultPollTimeout bounds each BLPOP so cancellation is observed promptly.
const DefaultPollTimeout = time.Second

// Config configures the queue.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Key is the list key (default: datablast:symbols).
	Key string
	// PollTimeout is the per-BLPOP timeout (default 1s).
	PollTimeout time.Duration
}

// Queue is a Source backed by a Redis list.
type Queue struct {
	config Config
	client *goredis.Client
}

// New creates a queue from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Queue, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis queue requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis queue: invalid URL: %w", err)
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &Queue{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Key returns the list key in use.
func (q *Queue) Key() string {
	return q.config.Key
}

// Next blocks until a symbol is available or ctx is done.
// The queue never reports io.EOF.
func (q *Queue) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res, err := q.client.BLPop(ctx, q.config.PollTimeout, q.config.Key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("redis queue: blpop %s: %w", q.config.Key, err)
		}
		// BLPOP returns [key, value].
		if len(res) != 2 {
			return "", fmt.Errorf("redis queue: unexpected blpop reply of length %d", len(res))
		}
		return res[1], nil
	}
}

// Push appends symbols to the list in order.
func (q *Queue) Push(ctx context.Context, symbols ...string) error {
	if len(symbols) == 0 {
		return nil
	}
	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	if err := q.client.RPush(ctx, q.config.Key, args...).Err(); err != nil {
		return fmt.Errorf("redis queue: rpush %s: %w", q.config.Key, err)
	}
	return nil
}

// Len returns the number of queued symbols.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.config.Key).Result()
}

// Close releases queue resources.
func (q *Queue) Close() error {
	return q.client.Close()
}

var _ source.Source = (*Queue)(nil)
