package config

import (
	"log/slog"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendBolt || cfg.Path != "simpstore.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.S3.Region != "us-east-1" || cfg.S3.Prefix != "simpstore/" {
		t.Fatalf("unexpected s3 defaults %+v", cfg.S3)
	}
	if level, _ := cfg.Level(); level != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", level)
	}
}

func TestLoadReadsNestedS3Settings(t *testing.T) {
	t.Setenv("SIMPSTORE_BACKEND", " S3 ")
	t.Setenv("SIMPSTORE_S3_BUCKET", "records")
	t.Setenv("SIMPSTORE_S3_ENDPOINT", "http://127.0.0.1:9000")
	t.Setenv("SIMPSTORE_S3_PATH_STYLE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendS3 || cfg.S3.Bucket != "records" || !cfg.S3.PathStyle {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.S3.Endpoint != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected endpoint %q", cfg.S3.Endpoint)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "unknown backend", cfg: Config{Backend: "etcd", LogLevel: "info"}, want: "unknown backend"},
		{name: "bolt without path", cfg: Config{Backend: BackendBolt, LogLevel: "info"}, want: "SIMPSTORE_PATH"},
		{name: "redis without addr", cfg: Config{Backend: BackendRedis, LogLevel: "info"}, want: "SIMPSTORE_REDIS_ADDR"},
		{name: "s3 without bucket", cfg: Config{Backend: BackendS3, LogLevel: "info"}, want: "SIMPSTORE_S3_BUCKET"},
		{name: "s3 half credentials", cfg: Config{Backend: BackendS3, LogLevel: "info", S3: S3Config{Bucket: "b", AccessKeyID: "id"}}, want: "must be set together"},
		{name: "bad level", cfg: Config{Backend: BackendMemory, LogLevel: "loud"}, want: "SIMPSTORE_LOG_LEVEL"},
		{name: "memory", cfg: Config{Backend: BackendMemory, LogLevel: "debug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("SIMPSTORE_TRACE", "not-a-bool")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
