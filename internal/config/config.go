// Package config loads command-line tool settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Config selects and configures the storage backend.
type Config struct {
	Backend        string   `env:"SIMPSTORE_BACKEND" envDefault:"bolt"`
	Path           string   `env:"SIMPSTORE_PATH" envDefault:"simpstore.db"`
	RedisAddr      string   `env:"SIMPSTORE_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisNamespace string   `env:"SIMPSTORE_REDIS_NAMESPACE"`
	S3             S3Config `envPrefix:"SIMPSTORE_S3_"`
	Trace          bool     `env:"SIMPSTORE_TRACE"`
	LogLevel       string   `env:"SIMPSTORE_LOG_LEVEL" envDefault:"info"`
}

// S3Config holds the bucket settings used by the s3 backend.
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Prefix          string `env:"PREFIX" envDefault:"simpstore/"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `env:"PATH_STYLE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the selected backend cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendBolt, BackendSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("config: SIMPSTORE_PATH is required for %s", c.Backend)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("config: SIMPSTORE_REDIS_ADDR is required for redis")
		}
	case BackendS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("config: SIMPSTORE_S3_BUCKET is required for s3")
		}
		if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
			return fmt.Errorf("config: SIMPSTORE_S3_ACCESS_KEY_ID and SIMPSTORE_S3_SECRET_ACCESS_KEY must be set together")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: SIMPSTORE_LOG_LEVEL: %w", err)
	}
	return level, nil
}
