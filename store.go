package simpstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-simpstore/internal/hydrate"
	"github.com/goliatone/go-simpstore/pkg/activity"
)

// Accessor returns the store built by Define, constructing it on the first
// call and returning the same instance afterwards.
type Accessor[T any] func() (*Store[T], error)

// Resolve implements Resolver so accessors of different state types can be
// grouped by MapStores.
func (a Accessor[T]) Resolve() (Instance, error) {
	if a == nil {
		return nil, ErrNilSetup
	}
	store, err := a()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrNotFound
	}
	return store, nil
}

// Store is a named singleton holding state built by a Setup function.
type Store[T any] struct {
	id      string
	setup   Setup[T]
	codec   *hydrate.Codec[T]
	cfg     storeConfig
	emitter *activity.Emitter
	persist *persister[T]

	mu    sync.Mutex
	state *T

	evalMu    sync.Mutex
	evaluator Evaluator
}

// Define registers a store definition under id. Nothing runs until the
// returned accessor is first invoked. A failing setup is returned from that
// invocation and leaves nothing memoized, so a later call retries.
func Define[T any](id string, setup Setup[T], opts ...Option) Accessor[T] {
	cfg := applyOptions(opts)
	var (
		mu       sync.Mutex
		instance *Store[T]
	)
	return func() (*Store[T], error) {
		mu.Lock()
		defer mu.Unlock()
		if instance != nil {
			return instance, nil
		}
		store, err := newStore(id, setup, cfg)
		if err != nil {
			return nil, err
		}
		instance = store
		if cfg.registry != nil {
			cfg.registry.Register(store)
		}
		return store, nil
	}
}

func newStore[T any](id string, setup Setup[T], cfg storeConfig) (*Store[T], error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	if setup == nil {
		return nil, wrapStoreError(id, OpSetup, ErrNilSetup)
	}
	codec, err := hydrate.NewCodec[T]()
	if err != nil {
		return nil, wrapStoreError(id, OpSetup, err)
	}

	start := time.Now()
	value, err := setup()
	if err != nil {
		err = wrapStoreError(id, OpSetup, err)
		cfg.logger.LogStore(LogEvent{Store: id, Op: OpSetup, Duration: time.Since(start), Err: err})
		return nil, err
	}
	cfg.logger.LogStore(LogEvent{Store: id, Op: OpSetup, Duration: time.Since(start)})

	s := &Store[T]{
		id:      id,
		setup:   setup,
		codec:   codec,
		cfg:     cfg,
		emitter: newStoreEmitter(cfg),
		state:   &value,
	}
	if cfg.persist {
		s.persist = newPersister(id, cfg, codec, s.emitter)
		s.persist.load(context.Background(), s.state)
	}
	emitStoreEvent(s.emitter, cfg.logger, activity.BuildCreatedEvent, activity.StoreEventInput{
		StoreID:   id,
		Key:       s.key(),
		Persisted: s.Persisted(),
	})
	return s, nil
}

// ID returns the store identifier.
func (s *Store[T]) ID() string {
	return s.id
}

// State returns the live state. Changes made through the pointer directly
// are only persisted after Commit.
func (s *Store[T]) State() *T {
	return s.state
}

// Persisted reports whether the persistence mixin is attached.
func (s *Store[T]) Persisted() bool {
	return s.persist != nil
}

// Mutate runs fn against the state under the store lock, then tracks the
// result. fn must not call back into the store.
func (s *Store[T]) Mutate(fn Mutator[T]) error {
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fnErr := fn(s.state)
	return errors.Join(fnErr, s.trackLocked())
}

// Update is Mutate for functions that cannot fail. Tracking failures are
// logged.
func (s *Store[T]) Update(fn func(*T)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
	_ = s.trackLocked()
}

// Commit tracks changes made through State outside Mutate.
func (s *Store[T]) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackLocked()
}

func (s *Store[T]) trackLocked() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.track(s.state); err != nil {
		return wrapStoreError(s.id, OpTrack, err)
	}
	return nil
}

// Reset reruns setup and copies every non-reserved field onto the existing
// state. The state is untouched when setup fails.
func (s *Store[T]) Reset() error {
	start := time.Now()
	fresh, err := s.setup()
	if err != nil {
		err = wrapStoreError(s.id, OpReset, err)
		s.cfg.logger.LogStore(LogEvent{Store: s.id, Op: OpReset, Duration: time.Since(start), Err: err})
		return err
	}

	s.mu.Lock()
	s.codec.Assign(s.state, &fresh)
	trackErr := s.trackLocked()
	s.mu.Unlock()

	s.cfg.logger.LogStore(LogEvent{Store: s.id, Op: OpReset, Duration: time.Since(start), Err: trackErr})
	emitStoreEvent(s.emitter, s.cfg.logger, activity.BuildResetEvent, activity.StoreEventInput{
		StoreID:   s.id,
		Key:       s.key(),
		Persisted: s.Persisted(),
	})
	return trackErr
}

// Snapshot returns the tracked data fields as plain JSON values.
func (s *Store[T]) Snapshot() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, err := s.codec.Snapshot(s.state)
	if err != nil {
		return nil, wrapStoreError(s.id, "snapshot", err)
	}
	return snapshot, nil
}

// Flush writes a pending save immediately. It is a no-op for stores without
// persistence or without a pending save.
func (s *Store[T]) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.persist.task.flush(ctx)
}

// Pending reports whether a debounced save is waiting to fire.
func (s *Store[T]) Pending() bool {
	return s.persist != nil && s.persist.task.pending()
}

// Cancel drops a pending save. It reports whether one was dropped.
func (s *Store[T]) Cancel() bool {
	if s.persist == nil {
		return false
	}
	return s.persist.cancel()
}

// Evaluate runs a watch expression against the current snapshot.
func (s *Store[T]) Evaluate(expr string) (any, error) {
	return s.EvaluateWith(EvalContext{}, expr)
}

// EvaluateWith runs expr using ctx. The snapshot and store name are filled
// from the store when unset.
func (s *Store[T]) EvaluateWith(ctx EvalContext, expr string) (any, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("simpstore: expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	if ctx.Snapshot == nil {
		snapshot, err := s.Snapshot()
		if err != nil {
			return nil, err
		}
		ctx.Snapshot = snapshot
	}
	if ctx.Store == "" {
		ctx.Store = s.id
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()

	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.Store, evalErr)
	s.cfg.logger.LogStore(LogEvent{Store: s.id, Op: OpEvaluate, Duration: time.Since(start), Err: evalErr})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (s *Store[T]) resolveEvaluator() (Evaluator, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.evaluator != nil {
		return s.evaluator, nil
	}
	if s.cfg.evaluator != nil {
		s.evaluator = s.cfg.evaluator
		return s.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if s.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.evaluator = evaluator
	return evaluator, nil
}

// Describe returns flattened descriptors of the current snapshot.
func (s *Store[T]) Describe() ([]FieldDescriptor, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return DescribeSnapshot(snapshot), nil
}

func (s *Store[T]) key() string {
	if s.persist == nil {
		return ""
	}
	return s.persist.key
}
