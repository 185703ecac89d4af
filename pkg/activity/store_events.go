package activity

import (
	"strings"
	"time"
)

// ObjectTypeStore is the object type attached to every store event.
const ObjectTypeStore = "store"

const (
	VerbCreated    = "store.created"
	VerbReset      = "store.reset"
	VerbSaved      = "store.saved"
	VerbSaveFailed = "store.save_failed"
	VerbLoadFailed = "store.load_failed"
	VerbCleared    = "store.cleared"
)

// StoreEventInput describes the common fields for store lifecycle events.
type StoreEventInput struct {
	StoreID    string
	ActorID    string
	Channel    string
	Key        string
	SnapshotID string
	Persisted  bool
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildCreatedEvent reports a store constructed on first access.
func BuildCreatedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbCreated, input)
}

// BuildResetEvent reports a store restored to fresh setup values.
func BuildResetEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbReset, input)
}

// BuildSavedEvent reports a debounced record written to storage.
func BuildSavedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbSaved, input)
}

// BuildSaveFailedEvent reports a debounced write the backend rejected.
func BuildSaveFailedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbSaveFailed, input)
}

// BuildLoadFailedEvent reports a persisted record that could not be applied.
func BuildLoadFailedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbLoadFailed, input)
}

// BuildClearedEvent reports a store dropped from its registry.
func BuildClearedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbCleared, input)
}

func buildStoreEvent(verb string, input StoreEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Key != "" {
		metadata = ensureMetadata(metadata)
		metadata["key"] = input.Key
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if input.Persisted {
		metadata = ensureMetadata(metadata)
		metadata["persist"] = true
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectTypeStore,
		ObjectID:   strings.TrimSpace(input.StoreID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
