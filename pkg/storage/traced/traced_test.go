package traced

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/goliatone/go-simpstore/pkg/storage"
	"github.com/goliatone/go-simpstore/pkg/storage/storagetest"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	recorder := tracetest.NewSpanRecorder()
	return recorder, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracedContract(t *testing.T) {
	_, provider := newRecorder()
	storagetest.Run(t, func(*testing.T) storage.Storage {
		return Wrap(storage.NewMemory(), WithTracerProvider(provider))
	})
}

func TestTracedRecordsSpans(t *testing.T) {
	recorder, provider := newRecorder()
	s := Wrap(storage.NewMemory(), WithTracerProvider(provider), WithBackend("memory"))
	ctx := context.Background()

	if err := s.SetItem(ctx, storage.Key("counter"), `{"count":5}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, _, err := s.GetItem(ctx, storage.Key("counter")); err != nil {
		t.Fatalf("get: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "simpstore.set" || spans[1].Name() != "simpstore.get" {
		t.Fatalf("unexpected span names %q %q", spans[0].Name(), spans[1].Name())
	}
	attrs := spans[1].Attributes()
	if v, ok := attrValue(attrs, "simpstore.store"); !ok || v.AsString() != "counter" {
		t.Fatalf("expected store attribute, got %v", attrs)
	}
	if v, ok := attrValue(attrs, "simpstore.backend"); !ok || v.AsString() != "memory" {
		t.Fatalf("expected backend attribute, got %v", attrs)
	}
	if v, ok := attrValue(attrs, "simpstore.found"); !ok || !v.AsBool() {
		t.Fatalf("expected found attribute, got %v", attrs)
	}
	if spans[1].Status().Code != codes.Ok {
		t.Fatalf("expected ok status, got %v", spans[1].Status())
	}
}

type brokenStorage struct {
	storage.Storage
	err error
}

func (b brokenStorage) SetItem(context.Context, string, string) error { return b.err }

func TestTracedRecordsErrors(t *testing.T) {
	recorder, provider := newRecorder()
	boom := errors.New("boom")
	s := Wrap(brokenStorage{Storage: storage.NewMemory(), err: boom}, WithTracerProvider(provider))

	if err := s.SetItem(context.Background(), "k", "v"); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error || spans[0].Status().Description != "boom" {
		t.Fatalf("expected error status, got %+v", spans[0].Status())
	}
	if len(spans[0].Events()) == 0 {
		t.Fatalf("expected recorded error event")
	}
	if _, ok := s.Unwrap().(brokenStorage); !ok {
		t.Fatalf("Unwrap must return the decorated backend")
	}
	if keys, err := s.Keys(context.Background(), ""); err != nil || keys != nil {
		t.Fatalf("non-listing backends return nil keys, got %v %v", keys, err)
	}
}
