// Package bolt stores persisted records in a single bbolt bucket.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-simpstore/pkg/storage"
)

// DefaultBucket holds records when no bucket is configured.
const DefaultBucket = "simpstore"

// Options configures the bbolt backend.
type Options struct {
	Bucket  string
	Timeout time.Duration
	Mode    os.FileMode
}

// Option mutates Options.
type Option func(*Options)

// WithBucket selects the bucket records are kept in.
func WithBucket(bucket string) Option {
	return func(o *Options) {
		o.Bucket = bucket
	}
}

// WithTimeout bounds how long Open waits for the file lock.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// Store is a storage.Storage backed by a bbolt file.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Lister  = (*Store)(nil)
)

// Open creates or opens the database at path and ensures the bucket exists.
func Open(path string, opts ...Option) (*Store, error) {
	options := Options{Bucket: DefaultBucket, Timeout: 5 * time.Second, Mode: 0o600}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.Bucket == "" {
		options.Bucket = DefaultBucket
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("bolt: create dir: %w", err)
		}
	}
	db, err := bolt.Open(path, options.Mode, &bolt.Options{Timeout: options.Timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	s := &Store{db: db, bucket: []byte(options.Bucket)}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}
	return s, nil
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		k, raw := b.Cursor().Seek([]byte(key))
		if k == nil || string(k) != key {
			return nil
		}
		// raw is only valid inside the transaction.
		value = string(raw)
		found = true
		return nil
	})
	if err != nil {
		return "", false, s.wrap(err)
	}
	return value, found, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wrap(s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	}))
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wrap(s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	}))
}

// Keys returns the keys starting with prefix in byte order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return storage.ErrClosed
	}
	return fmt.Errorf("bolt: %w", err)
}
