package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/datablast/metrics"
	"github.com/justapithecus/datablast/receiver"
)

// DefaultDataset is the dataset used when none is configured.
const DefaultDataset = "datablast"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"day", "session_id", "record_kind"}

// Config identifies where a decode session's output lands.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Day is the partition day (YYYY-MM-DD), see DeriveDay.
	Day string
	// SessionID identifies the decode session.
	SessionID string
	// Source names the symbol source ("file", "stdin", "redis").
	Source string
}

// Validate checks that every partition value is present.
func (c Config) Validate() error {
	var errs []error
	if c.Dataset == "" {
		errs = append(errs, errors.New("dataset is required"))
	}
	if c.Day == "" {
		errs = append(errs, errors.New("day is required"))
	}
	if c.SessionID == "" {
		errs = append(errs, errors.New("session id is required"))
	}
	if strings.ContainsAny(c.SessionID, "/=") {
		errs = append(errs, fmt.Errorf("session id %q must not contain '/' or '='", c.SessionID))
	}
	return errors.Join(errs...)
}

// DeriveDay formats t as a UTC partition day.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Client writes reassembled files and their records to Lode.
// Files land at Hive-partitioned paths under files/, next to the
// dataset's JSONL record segments.
type Client struct {
	dataset  lode.Dataset
	config   Config
	location string

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error

	collector *metrics.Collector
}

// NewClient creates a client over an arbitrary store factory.
// Use a factory sharing lode.NewMemory() for tests. location is a
// human-readable prefix for reported storage paths. collector may be nil.
func NewClient(cfg Config, factory lode.StoreFactory, location string, collector *metrics.Collector) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(cfg.Dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &Client{
		dataset:      ds,
		config:       cfg,
		location:     strings.TrimSuffix(location, "/"),
		storeFactory: factory,
		collector:    collector,
	}, nil
}

// NewFSClient creates a client with filesystem storage rooted at root.
func NewFSClient(cfg Config, root string, collector *metrics.Collector) (*Client, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return NewClient(cfg, lode.NewFSFactory(abs), "file://"+filepath.ToSlash(abs), collector)
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// StoragePath returns the externally visible location of a store path.
func (c *Client) StoragePath(path string) string {
	if c.location == "" {
		return path
	}
	return c.location + "/" + path
}

// FilePath computes the Hive-partitioned store path for a transfer's file.
// Format: datasets/<dataset>/partitions/day=<d>/session_id=<s>/files/<seq>-<name>
func (c *Client) FilePath(sequenceID uint8, fileName string) string {
	return fmt.Sprintf("datasets/%s/partitions/day=%s/session_id=%s/files/%02x-%s",
		c.config.Dataset,
		c.config.Day,
		c.config.SessionID,
		sequenceID,
		SanitizeFileName(fileName, sequenceID),
	)
}

// SanitizeFileName strips directories from a received file name. Names
// that reduce to nothing usable become seq-<id>.bin.
func SanitizeFileName(name string, sequenceID uint8) string {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return fmt.Sprintf("seq-%02x.bin", sequenceID)
	}
	return base
}

// PutFile writes raw bytes to path in the underlying store.
func (c *Client) PutFile(ctx context.Context, path string, data []byte) error {
	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// GetFile reads a stored file back.
func (c *Client) GetFile(ctx context.Context, path string) ([]byte, error) {
	store, err := c.getOrCreateStore()
	if err != nil {
		return nil, WrapInitError(err, c.config.Dataset)
	}
	rc, err := store.Get(ctx, path)
	if err != nil {
		return nil, WrapReadError(err, path)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, WrapReadError(err, path)
	}
	return buf.Bytes(), nil
}

// StoreTransfer writes the transfer's file and then its transfer record.
// Returns the storage path of the file.
func (c *Client) StoreTransfer(ctx context.Context, t *receiver.Transfer) (string, error) {
	path := c.FilePath(t.SequenceID, t.FileName)
	if err := c.PutFile(ctx, path, t.Data); err != nil {
		c.collector.IncStorageWriteFailure()
		return "", err
	}
	storagePath := c.StoragePath(path)
	if err := c.WriteTransfer(ctx, t, storagePath); err != nil {
		c.collector.IncStorageWriteFailure()
		return "", err
	}
	c.collector.IncStorageWriteSuccess()
	return storagePath, nil
}

// WriteTransfer appends a transfer record to the dataset.
func (c *Client) WriteTransfer(ctx context.Context, t *receiver.Transfer, storagePath string) error {
	record := toTransferRecordMap(t, storagePath, c.config)
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset+"/"+RecordKindTransfer)
	}
	return nil
}

// WriteMetrics appends a metrics record for the session.
func (c *Client) WriteMetrics(ctx context.Context, snap metrics.Snapshot, at time.Time) error {
	record := toMetricsRecordMap(snap, c.config, at)
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset+"/"+RecordKindMetrics)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// getOrCreateStore lazily initializes the Store from the factory.
func (c *Client) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}
