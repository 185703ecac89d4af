// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"reflect"
	"testing"

	"github.com/goliatone/go-simpstore/pkg/storage"
)

// Factory builds a fresh, empty backend for one subtest.
type Factory func(t *testing.T) storage.Storage

// Run exercises the Storage contract, and Lister when the backend implements
// it.
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	t.Run("missing", func(t *testing.T) {
		s := newStorage(t)
		value, ok, err := s.GetItem(context.Background(), storage.Key("missing"))
		if err != nil || ok || value != "" {
			t.Fatalf("expected missing key, got value=%q ok=%t err=%v", value, ok, err)
		}
	})

	t.Run("set replaces", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		key := storage.Key("counter")
		if err := s.SetItem(ctx, key, `{"count":1}`); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.SetItem(ctx, key, `{"count":5}`); err != nil {
			t.Fatalf("set: %v", err)
		}
		value, ok, err := s.GetItem(ctx, key)
		if err != nil || !ok {
			t.Fatalf("get: ok=%t err=%v", ok, err)
		}
		if value != `{"count":5}` {
			t.Fatalf("expected latest value, got %q", value)
		}
	})

	t.Run("empty value", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		key := storage.Key("blank")
		if err := s.SetItem(ctx, key, ""); err != nil {
			t.Fatalf("set: %v", err)
		}
		value, ok, err := s.GetItem(ctx, key)
		if err != nil || !ok || value != "" {
			t.Fatalf("expected stored empty value, got value=%q ok=%t err=%v", value, ok, err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		key := storage.Key("counter")
		if err := s.SetItem(ctx, key, "{}"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.RemoveItem(ctx, key); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if err := s.RemoveItem(ctx, key); err != nil {
			t.Fatalf("removing a missing key must not fail: %v", err)
		}
		if _, ok, err := s.GetItem(ctx, key); ok || err != nil {
			t.Fatalf("expected key removed, got ok=%t err=%v", ok, err)
		}
	})

	t.Run("keys", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		lister, ok := s.(storage.Lister)
		if !ok {
			t.Skip("backend does not list keys")
		}
		for _, key := range []string{storage.Key("b"), storage.Key("a"), "foreign:c"} {
			if err := s.SetItem(ctx, key, "{}"); err != nil {
				t.Fatalf("set %s: %v", key, err)
			}
		}
		keys, err := lister.Keys(ctx, storage.KeyPrefix)
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if want := []string{"simp-store:a", "simp-store:b"}; !reflect.DeepEqual(keys, want) {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	})
}
