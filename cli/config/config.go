// Package config loads datablast.yaml and the DATABLAST_* environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/datablast/sequence"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "datablast.yaml"

// Config represents a datablast.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Encoder  EncoderConfig `yaml:"encoder"`
	Storage  StorageConfig `yaml:"storage"`
	Adapter  AdapterConfig `yaml:"adapter"`
	Queue    QueueConfig   `yaml:"queue"`
}

// EncoderConfig holds encoder defaults. Zero means unset.
type EncoderConfig struct {
	MaxBytes  int `yaml:"max_bytes"`
	Persist   int `yaml:"persist"`
	MetaEvery int `yaml:"meta_every"`
}

// Apply overlays the set values onto base.
func (e EncoderConfig) Apply(base sequence.Config) sequence.Config {
	if e.MaxBytes > 0 {
		base.MaxBytesPerDataSymbol = e.MaxBytes
	}
	if e.Persist > 0 {
		base.PersistEachSymbolForFrames = e.Persist
	}
	if e.MetaEvery > 0 {
		base.DataSymbolsBetweenMetaSymbols = e.MetaEvery
	}
	return base
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// QueueConfig points at a Redis list carrying symbol text.
type QueueConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// Validate checks enumerated values and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be fs or s3, got %q", c.Storage.Backend))
	}
	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for adapter type %q", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	if c.Encoder.MaxBytes < 0 || c.Encoder.Persist < 0 || c.Encoder.MetaEvery < 0 {
		errs = append(errs, errors.New("encoder values must not be negative"))
	}
	return errors.Join(errs...)
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
