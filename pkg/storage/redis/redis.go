// Package redis keeps persisted records as plain Redis string values.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/goliatone/go-simpstore/pkg/storage"
)

// Options configures the Redis backend.
type Options struct {
	// Namespace is prepended to every storage key.
	Namespace string
	// TTL expires records when positive. Zero keeps them forever.
	TTL time.Duration
	// ScanCount hints the batch size used by Keys.
	ScanCount int64
}

// Option mutates Options.
type Option func(*Options)

// WithNamespace isolates records from other users of the same database.
func WithNamespace(namespace string) Option {
	return func(o *Options) {
		o.Namespace = namespace
	}
}

// WithTTL expires records after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// Store is a storage.Storage backed by a go-redis client.
type Store struct {
	client  goredis.UniversalClient
	options Options
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Lister  = (*Store)(nil)
)

// New wraps an existing client. The caller keeps ownership of the client.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	options := Options{ScanCount: 100}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.ScanCount <= 0 {
		options.ScanCount = 100
	}
	return &Store{client: client, options: options}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap("get", err)
	}
	return value, true, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	return s.wrap("set", s.client.Set(ctx, s.redisKey(key), value, s.options.TTL).Err())
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	return s.wrap("del", s.client.Del(ctx, s.redisKey(key)).Err())
}

// Keys scans for storage keys starting with prefix and returns them sorted,
// without the namespace.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(s.redisKey(prefix)) + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, match, s.options.ScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.options.Namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, s.wrap("scan", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) redisKey(key string) string {
	return s.options.Namespace + key
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.ErrClosed) {
		return fmt.Errorf("redis: %s: %w", op, storage.ErrClosed)
	}
	return fmt.Errorf("redis: %s: %w", op, err)
}

func escapeGlob(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
