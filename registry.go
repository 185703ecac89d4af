package simpstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-simpstore/pkg/activity"
)

// DefaultRegistry records stores defined without WithRegistry.
var DefaultRegistry = NewRegistry()

// Flusher is implemented by instances that can force their pending save.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Registry maps store identifiers to the most recently constructed instance
// under that identifier.
type Registry struct {
	mu      sync.RWMutex
	stores  map[string]Instance
	logger  Logger
	hooks   activity.Hooks
	channel string
	emitter *activity.Emitter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger attaches a logger used for bulk operations.
func WithRegistryLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		if logger == nil {
			logger = NopLogger()
		}
		r.logger = logger
	}
}

// WithRegistryActivityHooks notifies hooks when stores are cleared.
func WithRegistryActivityHooks(hooks activity.Hooks) RegistryOption {
	normalized := hooks.Clone()
	return func(r *Registry) {
		r.hooks = normalized
	}
}

// WithRegistryActivityChannel overrides the channel of registry events.
func WithRegistryActivityChannel(channel string) RegistryOption {
	return func(r *Registry) {
		r.channel = channel
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{stores: map[string]Instance{}}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = DefaultLogger()
	}
	r.emitter = newStoreEmitter(storeConfig{activityHooks: r.hooks, channel: r.channel})
	return r
}

// Register records instance under its ID, replacing any previous entry.
func (r *Registry) Register(instance Instance) {
	if r == nil || instance == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stores == nil {
		r.stores = map[string]Instance{}
	}
	r.stores[instance.ID()] = instance
}

// Get returns the instance registered under id.
func (r *Registry) Get(id string) (Instance, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, ok := r.stores[id]
	return instance, ok
}

// Remove drops id from the registry without touching the instance. It
// reports whether an entry existed.
func (r *Registry) Remove(id string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[id]; !ok {
		return false
	}
	delete(r.stores, id)
	return true
}

// Stores returns a copy of the identifier to instance map.
func (r *Registry) Stores() map[string]Instance {
	out := map[string]Instance{}
	if r == nil {
		return out
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, instance := range r.stores {
		out[id] = instance
	}
	return out
}

// IDs returns the registered identifiers sorted alphabetically.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports how many stores are registered.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

func (r *Registry) ordered() []Instance {
	ids := r.IDs()
	instances := make([]Instance, 0, len(ids))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		if instance, ok := r.stores[id]; ok {
			instances = append(instances, instance)
		}
	}
	return instances
}

// ResetAll resets every registered instance that supports it, in identifier
// order. Instances without Reset are skipped. Membership is unchanged.
func (r *Registry) ResetAll() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, instance := range r.ordered() {
		resettable, ok := instance.(Resettable)
		if !ok {
			continue
		}
		if err := resettable.Reset(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear removes every entry and cancels their pending saves. Accessors keep
// their memoized instances, which are no longer listed here.
func (r *Registry) Clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	cleared := r.stores
	r.stores = map[string]Instance{}
	r.mu.Unlock()

	ids := make([]string, 0, len(cleared))
	for id := range cleared {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		instance := cleared[id]
		if cancellable, ok := instance.(Cancellable); ok {
			cancellable.Cancel()
		}
		emitStoreEvent(r.emitter, r.logger, activity.BuildClearedEvent, activity.StoreEventInput{
			StoreID:   id,
			Persisted: instance.Persisted(),
		})
	}
}

// Flush forces the pending save of every registered store.
func (r *Registry) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for _, instance := range r.ordered() {
		flusher, ok := instance.(Flusher)
		if !ok {
			continue
		}
		if err := flusher.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Evaluate runs a watch expression against the store registered under id.
func (r *Registry) Evaluate(id, expr string) (any, error) {
	instance, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	evaluable, ok := instance.(Evaluable)
	if !ok {
		return nil, wrapStoreError(id, OpEvaluate, ErrNoEvaluator)
	}
	return evaluable.Evaluate(expr)
}

// GetStores returns a copy of DefaultRegistry's entries.
func GetStores() map[string]Instance {
	return DefaultRegistry.Stores()
}

// ResetStores resets every store in DefaultRegistry.
func ResetStores() error {
	return DefaultRegistry.ResetAll()
}

// ClearStores empties DefaultRegistry.
func ClearStores() {
	DefaultRegistry.Clear()
}

// FlushStores forces pending saves of every store in DefaultRegistry.
func FlushStores(ctx context.Context) error {
	return DefaultRegistry.Flush(ctx)
}
