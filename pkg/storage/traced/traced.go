// Package traced wraps a storage.Storage so every call records an
// OpenTelemetry span.
package traced

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-simpstore/pkg/storage"
)

const defaultTracerName = "github.com/goliatone/go-simpstore/pkg/storage"

// Config configures the decorator.
type Config struct {
	// TracerName is used with the global provider when Provider is nil.
	TracerName string
	// Provider overrides the global tracer provider.
	Provider trace.TracerProvider
	// Backend labels spans with the wrapped backend (memory, bolt, ...).
	Backend string
}

// Option mutates Config.
type Option func(*Config)

// WithTracerProvider selects the provider spans are created from.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithBackend sets the simpstore.backend attribute.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// Storage decorates a backend with spans named "simpstore.<op>".
type Storage struct {
	next    storage.Storage
	tracer  trace.Tracer
	backend string
}

var (
	_ storage.Storage = (*Storage)(nil)
	_ storage.Lister  = (*Storage)(nil)
)

// Wrap returns next decorated with tracing.
func Wrap(next storage.Storage, opts ...Option) *Storage {
	cfg := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	provider := cfg.Provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Storage{
		next:    next,
		tracer:  provider.Tracer(cfg.TracerName),
		backend: cfg.Backend,
	}
}

// Unwrap returns the decorated backend.
func (s *Storage) Unwrap() storage.Storage {
	return s.next
}

func (s *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.start(ctx, "get", key)
	defer span.End()
	value, ok, err := s.next.GetItem(ctx, key)
	span.SetAttributes(attribute.Bool("simpstore.found", ok))
	if ok {
		span.SetAttributes(attribute.Int("simpstore.bytes", len(value)))
	}
	record(span, err)
	return value, ok, err
}

func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	ctx, span := s.start(ctx, "set", key)
	defer span.End()
	span.SetAttributes(attribute.Int("simpstore.bytes", len(value)))
	err := s.next.SetItem(ctx, key, value)
	record(span, err)
	return err
}

func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	ctx, span := s.start(ctx, "remove", key)
	defer span.End()
	err := s.next.RemoveItem(ctx, key)
	record(span, err)
	return err
}

// Keys delegates when the wrapped backend lists keys and returns nil
// otherwise.
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, ok := s.next.(storage.Lister)
	if !ok {
		return nil, nil
	}
	ctx, span := s.start(ctx, "keys", prefix)
	defer span.End()
	keys, err := lister.Keys(ctx, prefix)
	span.SetAttributes(attribute.Int("simpstore.count", len(keys)))
	record(span, err)
	return keys, err
}

func (s *Storage) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("simpstore.key", key),
	}
	if id, ok := storage.StoreID(key); ok {
		attrs = append(attrs, attribute.String("simpstore.store", id))
	}
	if s.backend != "" {
		attrs = append(attrs, attribute.String("simpstore.backend", s.backend))
	}
	return s.tracer.Start(ctx, "simpstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func record(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
