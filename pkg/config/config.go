package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fluxorio/lightpool/pkg/core/concurrency"
)

// EnvPrefix prefixes every environment override, e.g. LIGHTPOOL_POOL_WORKERS
const EnvPrefix = "LIGHTPOOL"

// Config is the lightpool runtime configuration
type Config struct {
	Pool     PoolConfig    `yaml:"pool" json:"pool"`
	LogLevel string        `yaml:"log_level" json:"log_level"`
	Metrics  MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig `yaml:"tracing" json:"tracing"`
}

// PoolConfig sizes the worker pool
type PoolConfig struct {
	Workers int    `yaml:"workers" json:"workers"`
	Name    string `yaml:"name" json:"name"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig controls per-task spans written to stdout
type TracingConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	PrettyPrint bool `yaml:"pretty_print" json:"pretty_print"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	pool := concurrency.DefaultWorkerPoolConfig()
	return Config{
		Pool: PoolConfig{
			Workers: pool.Workers,
			Name:    pool.Name,
		},
		LogLevel: "info",
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
	}
}

// Load reads path on top of Default, applies LIGHTPOOL_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnvOverrides(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile decodes path onto cfg. Files ending in .json are JSON, anything
// else is YAML. Unknown keys are an error so typos do not pass silently.
func loadFile(path string, cfg *Config) error {
	// #nosec G304 -- path comes from the operator via --config.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if isJSON(path) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file leaves the defaults untouched.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}
	return nil
}

// Save writes c to path, as JSON if path ends in .json and YAML otherwise
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	return Validate(c,
		Positive("pool.workers", func(c *Config) int { return c.Pool.Workers }),
		OneOf("log_level", func(c *Config) string { return strings.ToLower(c.LogLevel) },
			"debug", "info", "warn", "error"),
		When(func(c *Config) bool { return c.Metrics.Enabled },
			NotEmpty("metrics.addr", func(c *Config) string { return c.Metrics.Addr }),
			PathLike("metrics.path", func(c *Config) string { return c.Metrics.Path }),
		),
	)
}

// WorkerPoolConfig converts the pool section for concurrency.NewWorkerPool
func (c *Config) WorkerPoolConfig() concurrency.WorkerPoolConfig {
	return concurrency.WorkerPoolConfig{
		Workers: c.Pool.Workers,
		Name:    c.Pool.Name,
	}
}
