package simpstore

import (
	"time"

	"github.com/goliatone/go-simpstore/pkg/activity"
	"github.com/goliatone/go-simpstore/pkg/storage"
)

// DefaultDebounce is the delay between the last tracked change of a persisted
// store and its durable write.
const DefaultDebounce = 300 * time.Millisecond

// DefaultStorage backs persisted stores defined without WithStorage. It is an
// in-memory storage.Memory, so its records do not survive the process.
var DefaultStorage storage.Storage = storage.NewMemory()

// Setup builds the initial state of a store. It runs on first access and
// again on every Reset.
type Setup[T any] func() (T, error)

// Mutator changes state in place.
type Mutator[T any] func(*T) error

// Instance is the type-erased view of a store kept by a Registry.
type Instance interface {
	ID() string
	Persisted() bool
	Snapshot() (map[string]any, error)
}

// Resettable is implemented by instances that can return to fresh setup
// values.
type Resettable interface {
	Reset() error
}

// Cancellable is implemented by instances owning a pending debounced save.
type Cancellable interface {
	Cancel() bool
}

// Option configures a store definition.
type Option func(*storeConfig)

type storeConfig struct {
	persist       bool
	storage       storage.Storage
	registry      *Registry
	logger        Logger
	activityHooks activity.Hooks
	channel       string
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.storage == nil {
		cfg.storage = DefaultStorage
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry
	}
	if cfg.logger == nil {
		cfg.logger = DefaultLogger()
	}
	return cfg
}

// WithPersist enables the persistence mixin: load on construction, debounced
// save after tracked changes.
func WithPersist(persist bool) Option {
	return func(cfg *storeConfig) {
		cfg.persist = persist
	}
}

// WithStorage selects the backend persisted records are read from and
// written to.
func WithStorage(s storage.Storage) Option {
	return func(cfg *storeConfig) {
		cfg.storage = s
	}
}

// WithRegistry records the store in r instead of DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(cfg *storeConfig) {
		cfg.registry = r
	}
}

// WithEvaluator configures the engine used by Store.Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a program cache for the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *storeConfig) {
		cfg.programCache = cache
	}
}
