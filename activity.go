package simpstore

import (
	"context"
	"time"

	"github.com/goliatone/go-simpstore/pkg/activity"
)

// WithActivityHooks attaches activity hooks to the store definition. Hooks
// are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *storeConfig) {
		cfg.channel = channel
	}
}

func newStoreEmitter(cfg storeConfig) *activity.Emitter {
	if !cfg.activityHooks.Enabled() {
		return nil
	}
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: true,
		Channel: cfg.channel,
	})
}

// emitStoreEvent builds and sends one lifecycle event. Hook failures are
// logged against the store and never surface to callers.
func emitStoreEvent(emitter *activity.Emitter, logger Logger, build func(activity.StoreEventInput) activity.Event, input activity.StoreEventInput) {
	if !emitter.Enabled() {
		return
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = time.Now().UTC()
	}
	event := build(input)
	if err := emitter.Emit(context.Background(), event); err != nil && logger != nil {
		logger.LogStore(LogEvent{Store: input.StoreID, Op: OpEmit, Key: input.Key, Err: err})
	}
}
