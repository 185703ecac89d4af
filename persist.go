package simpstore

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-simpstore/internal/hydrate"
	"github.com/goliatone/go-simpstore/pkg/activity"
	"github.com/goliatone/go-simpstore/pkg/storage"
)

var errEmptyRecord = errors.New("simpstore: persisted record is empty")

// persister loads a store's record once and writes tracked changes back
// through a debounced saveTask.
type persister[T any] struct {
	id      string
	key     string
	storage storage.Storage
	codec   *hydrate.Codec[T]
	logger  Logger
	emitter *activity.Emitter
	task    *saveTask

	mu        sync.Mutex
	scheduled []byte
	saved     []byte
}

func newPersister[T any](id string, cfg storeConfig, codec *hydrate.Codec[T], emitter *activity.Emitter) *persister[T] {
	p := &persister[T]{
		id:      id,
		key:     storage.Key(id),
		storage: cfg.storage,
		codec:   codec,
		logger:  cfg.logger,
		emitter: emitter,
	}
	p.task = newSaveTask(DefaultDebounce, p.write)
	return p
}

// load overwrites matching fields of state with the persisted record. Read
// and decode failures are reported and the setup values kept.
func (p *persister[T]) load(ctx context.Context, state *T) {
	start := time.Now()
	raw, ok, err := p.storage.GetItem(ctx, p.key)
	if err == nil && ok {
		if raw == "" {
			err = errEmptyRecord
		} else {
			err = p.codec.Apply(state, []byte(raw))
		}
	}
	if err != nil {
		p.logger.LogStore(LogEvent{Store: p.id, Op: OpLoad, Key: p.key, Duration: time.Since(start), Err: err})
		emitStoreEvent(p.emitter, p.logger, activity.BuildLoadFailedEvent, activity.StoreEventInput{
			StoreID:   p.id,
			Key:       p.key,
			Persisted: true,
			Err:       err,
		})
	} else if ok {
		p.logger.LogStore(LogEvent{Store: p.id, Op: OpLoad, Key: p.key, Duration: time.Since(start)})
	}
	p.baseline(state)
}

// baseline records the current encoding as already saved so an unchanged
// state never triggers a write.
func (p *persister[T]) baseline(state *T) {
	encoded, err := p.codec.Encode(state)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.scheduled = encoded
	p.saved = encoded
	p.mu.Unlock()
}

// track schedules a save when the encoded state differs from the last
// scheduled record. Callers hold the store lock.
func (p *persister[T]) track(state *T) error {
	encoded, err := p.codec.Encode(state)
	if err != nil {
		p.logger.LogStore(LogEvent{Store: p.id, Op: OpTrack, Key: p.key, Err: err})
		return err
	}
	p.mu.Lock()
	if bytes.Equal(encoded, p.scheduled) {
		p.mu.Unlock()
		return nil
	}
	p.scheduled = encoded
	p.mu.Unlock()
	p.task.schedule(encoded)
	return nil
}

func (p *persister[T]) write(ctx context.Context, payload []byte) error {
	start := time.Now()
	err := p.storage.SetItem(ctx, p.key, string(payload))
	duration := time.Since(start)
	if err != nil {
		p.mu.Lock()
		if bytes.Equal(p.scheduled, payload) {
			p.scheduled = p.saved
		}
		p.mu.Unlock()
		p.logger.LogStore(LogEvent{Store: p.id, Op: OpSave, Key: p.key, Duration: duration, Err: err})
		emitStoreEvent(p.emitter, p.logger, activity.BuildSaveFailedEvent, activity.StoreEventInput{
			StoreID:   p.id,
			Key:       p.key,
			Persisted: true,
			Err:       err,
		})
		return wrapStoreError(p.id, OpSave, err)
	}
	p.mu.Lock()
	p.saved = payload
	p.mu.Unlock()
	p.logger.LogStore(LogEvent{Store: p.id, Op: OpSave, Key: p.key, Duration: duration})
	emitStoreEvent(p.emitter, p.logger, activity.BuildSavedEvent, activity.StoreEventInput{
		StoreID:    p.id,
		Key:        p.key,
		SnapshotID: uuid.NewString(),
		Persisted:  true,
	})
	return nil
}

// cancel drops the pending write and rolls the scheduled record back to the
// last one written.
func (p *persister[T]) cancel() bool {
	cancelled := p.task.cancel()
	if cancelled {
		p.mu.Lock()
		p.scheduled = p.saved
		p.mu.Unlock()
	}
	return cancelled
}
