package promsink

import (
	"context"
	"testing"

	"github.com/goliatone/go-simpstore/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHookCountsEventsAndSaves(t *testing.T) {
	registry := prometheus.NewRegistry()
	hook, err := New(WithRegistry(registry))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	hooks := activity.Hooks{hook}
	ctx := context.Background()
	_ = hooks.Notify(ctx, activity.BuildCreatedEvent(activity.StoreEventInput{StoreID: "cart"}))
	_ = hooks.Notify(ctx, activity.BuildSavedEvent(activity.StoreEventInput{StoreID: "cart"}))
	_ = hooks.Notify(ctx, activity.BuildSavedEvent(activity.StoreEventInput{StoreID: "cart"}))
	_ = hooks.Notify(ctx, activity.BuildSaveFailedEvent(activity.StoreEventInput{StoreID: "cart"}))

	if got := testutil.ToFloat64(hook.events.WithLabelValues(activity.VerbCreated, "cart")); got != 1 {
		t.Fatalf("expected 1 created event, got %v", got)
	}
	if got := testutil.ToFloat64(hook.saves.WithLabelValues("cart", "ok")); got != 2 {
		t.Fatalf("expected 2 successful saves, got %v", got)
	}
	if got := testutil.ToFloat64(hook.saves.WithLabelValues("cart", "error")); got != 1 {
		t.Fatalf("expected 1 failed save, got %v", got)
	}
	if n := testutil.CollectAndCount(hook.events, "simpstore_events_total"); n != 3 {
		t.Fatalf("expected 3 event series, got %d", n)
	}
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := New(WithRegistry(registry)); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := New(WithRegistry(registry)); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := New(WithRegistry(registry), WithNamespace("other")); err != nil {
		t.Fatalf("distinct namespace should register: %v", err)
	}
}
