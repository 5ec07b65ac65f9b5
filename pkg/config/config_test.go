package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fluxorio/lightpool/pkg/core/concurrency"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Pool.Workers <= 0 {
		t.Errorf("Pool.Workers = %d, want > 0", cfg.Pool.Workers)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "lightpool.yaml", `
pool:
  workers: 6
  name: bench
log_level: debug
metrics:
  enabled: true
  addr: ":9191"
tracing:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pool.Workers != 6 {
		t.Errorf("Pool.Workers = %d, want 6", cfg.Pool.Workers)
	}
	if cfg.Pool.Name != "bench" {
		t.Errorf("Pool.Name = %q, want bench", cfg.Pool.Name)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9191" {
		t.Errorf("Metrics = %+v, want enabled on :9191", cfg.Metrics)
	}
	// Unset keys keep their defaults.
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
	if !cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled = false, want true")
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "lightpool.json", `{"pool": {"workers": 3}, "log_level": "warn"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pool.Workers != 3 {
		t.Errorf("Pool.Workers = %d, want 3", cfg.Pool.Workers)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "lightpool.yaml", "pool:\n  workers: 2\n")

	t.Setenv("LIGHTPOOL_POOL_WORKERS", "12")
	t.Setenv("LIGHTPOOL_POOL_NAME", "from-env")
	t.Setenv("LIGHTPOOL_METRICS_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pool.Workers != 12 {
		t.Errorf("Pool.Workers = %d, want 12", cfg.Pool.Workers)
	}
	if cfg.Pool.Name != "from-env" {
		t.Errorf("Pool.Name = %q, want from-env", cfg.Pool.Name)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("LIGHTPOOL_POOL_WORKERS", "many")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "LIGHTPOOL_POOL_WORKERS") {
		t.Errorf("Load() error = %v, want mention of LIGHTPOOL_POOL_WORKERS", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Pool.Workers = 0 },
			wantErr: []string{"pool.workers"},
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: []string{"log_level"},
		},
		{
			name: "metrics checked only when enabled",
			mutate: func(c *Config) {
				c.Metrics.Addr = ""
				c.Metrics.Path = "metrics"
			},
		},
		{
			name: "all failures reported together",
			mutate: func(c *Config) {
				c.Pool.Workers = -1
				c.Metrics.Enabled = true
				c.Metrics.Addr = " "
				c.Metrics.Path = "metrics"
			},
			wantErr: []string{"pool.workers", "metrics.addr", "metrics.path"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want errors for %v", tt.wantErr)
			}
			for _, field := range tt.wantErr {
				if !strings.Contains(err.Error(), field) {
					t.Errorf("Validate() error = %v, missing %s", err, field)
				}
			}
		})
	}
}

func TestWorkerPoolConfig(t *testing.T) {
	cfg := Default()
	cfg.Pool.Workers = 0

	_, err := concurrency.NewWorkerPool(t.Context(), cfg.WorkerPoolConfig())
	if !errors.Is(err, concurrency.ErrConfig) {
		t.Errorf("NewWorkerPool() error = %v, want ErrConfig", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := Default()
			cfg.Pool.Name = "saved"
			cfg.Tracing.Enabled = true
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.Pool.Name != "saved" || !loaded.Tracing.Enabled {
				t.Errorf("Load() = %+v, want name saved with tracing enabled", loaded)
			}
		})
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "typo.yaml", "pool:\n  wokers: 4\n"},
		{"json", "typo.json", `{"pool": {"wokers": 4}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), "wokers") {
				t.Errorf("Load() error = %v, want unknown field wokers", err)
			}
		})
	}
}

func TestLoad_EmptyYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pool.Workers != Default().Pool.Workers {
		t.Errorf("Pool.Workers = %d, want default %d", cfg.Pool.Workers, Default().Pool.Workers)
	}
}
