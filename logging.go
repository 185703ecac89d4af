package simpstore

import (
	"context"
	"log/slog"
	"time"
)

// Operations reported through LogEvent.Op.
const (
	OpSetup    = "setup"
	OpLoad     = "load"
	OpSave     = "save"
	OpReset    = "reset"
	OpTrack    = "track"
	OpEvaluate = "evaluate"
	OpEmit     = "emit"
)

// LogEvent describes one store operation for logging.
type LogEvent struct {
	Store    string
	Op       string
	Key      string
	Duration time.Duration
	Err      error
}

// Logger records store events.
type Logger interface {
	LogStore(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogStore implements Logger.
func (f LoggerFunc) LogStore(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogStore(LogEvent) {}

// NopLogger discards every event.
func NopLogger() Logger {
	return noopLogger{}
}

// WithLogger attaches a logger to the store definition. A nil logger
// silences the store.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

type slogLogger struct {
	logger *slog.Logger
}

// SlogLogger writes failures at error level and everything else at debug.
func SlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

// DefaultLogger is used by stores defined without WithLogger.
func DefaultLogger() Logger {
	return SlogLogger(slog.Default())
}

func (l slogLogger) LogStore(event LogEvent) {
	attrs := []slog.Attr{
		slog.String("store", event.Store),
		slog.String("op", event.Op),
	}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
		l.logger.LogAttrs(context.Background(), slog.LevelError, "simpstore: "+event.Op+" failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "simpstore: "+event.Op, attrs...)
}
