// Package backend opens the storage backend selected by config.Config.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/goliatone/go-simpstore/internal/config"
	"github.com/goliatone/go-simpstore/pkg/storage"
	"github.com/goliatone/go-simpstore/pkg/storage/bolt"
	"github.com/goliatone/go-simpstore/pkg/storage/redis"
	storages3 "github.com/goliatone/go-simpstore/pkg/storage/s3"
	"github.com/goliatone/go-simpstore/pkg/storage/sqlite"
	"github.com/goliatone/go-simpstore/pkg/storage/traced"
)

// Backend is an opened storage plus the function that releases it.
type Backend struct {
	storage.Storage
	Name   string
	closer io.Closer
}

// Close releases the underlying connection or file handle.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Lister returns the backend as a storage.Lister when it supports key listing.
func (b *Backend) Lister() (storage.Lister, bool) {
	lister, ok := b.Storage.(storage.Lister)
	return lister, ok
}

// Open builds the backend named by cfg.Backend. With cfg.Trace set the result
// is wrapped so each call records a span on the global tracer provider.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	var (
		store  storage.Storage
		closer io.Closer
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = storage.NewMemory()
	case config.BackendBolt:
		db, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		store, closer = db, db
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		store, closer = db, db
	case config.BackendRedis:
		var opts []redis.Option
		if cfg.RedisNamespace != "" {
			opts = append(opts, redis.WithNamespace(cfg.RedisNamespace))
		}
		client, err := redis.Dial(ctx, cfg.RedisAddr, opts...)
		if err != nil {
			return nil, err
		}
		store, closer = client, client
	case config.BackendS3:
		store = storages3.New(NewS3Client(cfg.S3), cfg.S3.Bucket, cfg.S3.Prefix)
	default:
		return nil, fmt.Errorf("backend: unknown backend %q", cfg.Backend)
	}
	if cfg.Trace {
		store = traced.Wrap(store, traced.WithBackend(cfg.Backend))
	}
	return &Backend{Storage: store, Name: cfg.Backend, closer: closer}, nil
}

// NewS3Client builds an S3 client from static settings. Without keys the
// client signs nothing, which suits public buckets and local emulators.
func NewS3Client(cfg config.S3Config) *awss3.Client {
	options := awss3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "simpstore-env",
		}
		options.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awss3.New(options)
}
