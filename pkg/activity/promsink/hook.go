// Package promsink exposes store activity as Prometheus counters.
package promsink

import (
	"context"

	"github.com/goliatone/go-simpstore/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the collector names and registry.
type Config struct {
	// Namespace is the metrics namespace (default: "simpstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry receives the collectors.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Hook.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Hook counts store events by verb and store identifier.
type Hook struct {
	events *prometheus.CounterVec
	saves  *prometheus.CounterVec
}

// New builds the collectors and registers them.
func New(opts ...Option) (*Hook, error) {
	cfg := Config{
		Namespace: "simpstore",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	h := &Hook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "events_total",
			Help:        "Store lifecycle events by verb.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"verb", "store"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "saves_total",
			Help:        "Debounced persistence writes by outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"store", "outcome"}),
	}

	if cfg.Registry != nil {
		for _, collector := range []prometheus.Collector{h.events, h.saves} {
			if err := cfg.Registry.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	h.events.WithLabelValues(event.Verb, event.ObjectID).Inc()
	switch event.Verb {
	case activity.VerbSaved:
		h.saves.WithLabelValues(event.ObjectID, "ok").Inc()
	case activity.VerbSaveFailed:
		h.saves.WithLabelValues(event.ObjectID, "error").Inc()
	}
	return nil
}
