package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "DATABLAST"

// Env is the environment overlay.
type Env struct {
	// Config is the config file path (DATABLAST_CONFIG).
	Config string `envconfig:"CONFIG"`
	// LogLevel overrides log_level (DATABLAST_LOG_LEVEL).
	LogLevel string `envconfig:"LOG_LEVEL"`
}

// LoadEnv reads the DATABLAST_* environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("invalid environment: %w", err)
	}
	return env, nil
}

// Load reads a YAML config file, expands environment variables, and
// unmarshals into a Config struct. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded, err := ExpandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve picks the config file: an explicit path wins, then
// DATABLAST_CONFIG, then DefaultPath if it exists. Returns an empty
// Config when no file applies. The env log level overrides the file.
func Resolve(explicit string, env Env) (*Config, error) {
	path := explicit
	if path == "" {
		path = env.Config
	}
	var cfg *Config
	switch {
	case path != "":
		c, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		if _, err := os.Stat(DefaultPath); err == nil {
			c, err := Load(DefaultPath)
			if err != nil {
				return nil, err
			}
			cfg = c
		} else {
			cfg = &Config{}
		}
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
	return cfg, nil
}
