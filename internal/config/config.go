// Package config holds all scenesmith configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Name string `yaml:"name"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Storage  StorageConfig  `yaml:"storage"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig tunes the synchronous compilation chain.
type PipelineConfig struct {
	// DynamicValidation instantiates each artifact once in an isolated
	// interpreter after compiling. Slower, catches immediate throws.
	DynamicValidation bool   `yaml:"dynamic_validation"`
	ValidateTimeout   string `yaml:"validate_timeout"`
	MaxSourceBytes    int    `yaml:"max_source_bytes"`
}

// StoreConfig locates the scene database.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

// StorageConfig selects the artifact storage backend.
type StorageConfig struct {
	Backend  string      `yaml:"backend"` // local, minio
	LocalDir string      `yaml:"local_dir"`
	Minio    MinioConfig `yaml:"minio"`
}

// MinioConfig mirrors the S3-compatible connection settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// WorkerConfig tunes the asynchronous build workers. Durations are strings
// ("500ms", "2m") parsed on use.
type WorkerConfig struct {
	Workers         int    `yaml:"workers"`
	PollInterval    string `yaml:"poll_interval"`
	BuildTimeout    string `yaml:"build_timeout"`
	ReclaimInterval string `yaml:"reclaim_interval"`
	StaleAfter      string `yaml:"stale_after"`
	MaxRetries      int    `yaml:"max_retries"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Name: "scenesmith",
		Pipeline: PipelineConfig{
			DynamicValidation: true,
			ValidateTimeout:   "5s",
			MaxSourceBytes:    256 * 1024,
		},
		Store:   StoreConfig{DataDir: ".scenesmith"},
		Storage: StorageConfig{Backend: "local", LocalDir: ".scenesmith/artifacts"},
		Worker: WorkerConfig{
			Workers:         2,
			PollInterval:    "500ms",
			BuildTimeout:    "30s",
			ReclaimInterval: "15s",
			StaleAfter:      "2m",
			MaxRetries:      5,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	for _, d := range []struct {
		name  string
		value string
	}{
		{"pipeline.validate_timeout", c.Pipeline.ValidateTimeout},
		{"worker.poll_interval", c.Worker.PollInterval},
		{"worker.build_timeout", c.Worker.BuildTimeout},
		{"worker.reclaim_interval", c.Worker.ReclaimInterval},
		{"worker.stale_after", c.Worker.StaleAfter},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", d.name, err)
		}
	}
	switch c.Storage.Backend {
	case "", "local", "minio":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Duration parses a config duration string, falling back to def when unset
// or malformed.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
