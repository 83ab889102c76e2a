package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/kernelgo/persistence"
	"gopkg.in/yaml.v2"
)

// Config is the daemon configuration file.
type Config struct {
	Listen string       `yaml:"listen"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
}

// EngineConfig mirrors the kernelgo engine options.
type EngineConfig struct {
	MemoryLimit    int64    `yaml:"memory_limit"`
	Workers        int      `yaml:"workers"`
	Grain          int      `yaml:"grain"`
	HashKey        []uint64 `yaml:"hash_key,flow"`
	Compression    string   `yaml:"compression"`
	IOLimit        int64    `yaml:"io_limit"`
	BackgroundJobs int64    `yaml:"background_jobs"`
}

// LogConfig selects the log level and output format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects the snapshot backend.
//
// Backends: "" (snapshots disabled), memory, local, bolt, s3, s3+ddb, minio.
type StoreConfig struct {
	Backend string `yaml:"backend"`

	// Path is the directory of the local backend or the database file of
	// the bolt backend.
	Path string `yaml:"path"`

	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`

	// Table is the DynamoDB table holding CURRENT pointers (s3+ddb).
	Table string `yaml:"table"`

	// MinIO connection.
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen: ":8080",
		Engine: EngineConfig{
			Compression:    "lz4",
			BackgroundJobs: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, nil
	}
	bs, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Engine.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.memory_limit %d is negative", c.Engine.MemoryLimit))
	}
	if n := len(c.Engine.HashKey); n != 0 && n != 2 {
		errs = append(errs, fmt.Errorf("engine.hash_key needs 2 words, got %d", n))
	}
	if _, err := persistence.ParseCompression(c.Engine.Compression); err != nil {
		errs = append(errs, fmt.Errorf("engine.compression: %w", err))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if err := c.Store.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

func (s StoreConfig) validate() error {
	switch strings.ToLower(s.Backend) {
	case "", "memory":
		return nil
	case "local", "bolt":
		if s.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", s.Backend)
		}
	case "s3", "minio":
		if s.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the %s backend", s.Backend)
		}
		if s.Backend == "minio" && s.Endpoint == "" {
			return errors.New("store.endpoint is required for the minio backend")
		}
	case "s3+ddb":
		if s.Bucket == "" || s.Table == "" {
			return errors.New("store.bucket and store.table are required for the s3+ddb backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", s.Backend)
	}
	return nil
}
