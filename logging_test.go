package simpstore

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := SlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.LogStore(LogEvent{Store: "counter", Op: OpSave, Key: "simp-store:counter", Duration: time.Millisecond})
	logger.LogStore(LogEvent{Store: "counter", Op: OpLoad, Err: errors.New("bad json")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "level=DEBUG") || !strings.Contains(lines[0], "key=simp-store:counter") {
		t.Fatalf("unexpected success line %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=ERROR") || !strings.Contains(lines[1], `msg="simpstore: load failed"`) {
		t.Fatalf("unexpected failure line %q", lines[1])
	}
	if !strings.Contains(lines[1], `error="bad json"`) {
		t.Fatalf("expected error attribute, got %q", lines[1])
	}
}

func TestLoggerFuncAndNop(t *testing.T) {
	var got []LogEvent
	logger := LoggerFunc(func(event LogEvent) { got = append(got, event) })
	logger.LogStore(LogEvent{Store: "a", Op: OpReset})
	if len(got) != 1 || got[0].Op != OpReset {
		t.Fatalf("expected forwarded event, got %+v", got)
	}

	var nilFunc LoggerFunc
	nilFunc.LogStore(LogEvent{})
	NopLogger().LogStore(LogEvent{})
}

func TestWithLoggerNilSilences(t *testing.T) {
	cfg := applyOptions([]Option{WithLogger(nil)})
	if _, ok := cfg.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", cfg.logger)
	}
	cfg = applyOptions(nil)
	if _, ok := cfg.logger.(slogLogger); !ok {
		t.Fatalf("expected slog logger by default, got %T", cfg.logger)
	}
	if cfg.storage != DefaultStorage || cfg.registry != DefaultRegistry {
		t.Fatalf("expected package defaults")
	}
}
