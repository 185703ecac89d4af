package storage

import (
	"context"
	"errors"
	"strings"
)

// KeyPrefix namespaces every persisted record.
const KeyPrefix = "simp-store:"

var ErrClosed = errors.New("storage: closed")

// Storage loads/saves one string value per key.
type Storage interface {
	// GetItem returns ok=false when key has no value.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	// SetItem replaces any prior value stored for key.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem must not fail when key is missing.
	RemoveItem(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key returns the storage key for a store identifier.
func Key(id string) string {
	return KeyPrefix + id
}

// StoreID extracts the store identifier from key. ok is false when key was not
// produced by Key.
func StoreID(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, KeyPrefix), true
}
