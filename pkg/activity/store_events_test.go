package activity

import (
	"errors"
	"testing"
)

func TestBuildSavedEventIncludesMetadata(t *testing.T) {
	event := BuildSavedEvent(StoreEventInput{
		StoreID:    " counter ",
		Key:        "simp-store:counter",
		SnapshotID: "snap-1",
		Persisted:  true,
		Metadata:   map[string]any{"bytes": 11},
	})

	if event.Verb != VerbSaved || event.ObjectType != ObjectTypeStore || event.ObjectID != "counter" {
		t.Fatalf("unexpected event fields: %+v", event)
	}
	if event.Metadata["key"] != "simp-store:counter" || event.Metadata["snapshot_id"] != "snap-1" {
		t.Fatalf("expected key and snapshot metadata, got %+v", event.Metadata)
	}
	if event.Metadata["persist"] != true || event.Metadata["bytes"] != 11 {
		t.Fatalf("expected persist and custom metadata, got %+v", event.Metadata)
	}
}

func TestBuildLoadFailedEventCarriesError(t *testing.T) {
	event := BuildLoadFailedEvent(StoreEventInput{StoreID: "invalid", Err: errors.New("bad json")})
	if event.Verb != VerbLoadFailed {
		t.Fatalf("unexpected verb %q", event.Verb)
	}
	if event.Metadata["error"] != "bad json" {
		t.Fatalf("expected error metadata, got %+v", event.Metadata)
	}
}

func TestBuildEventsWithoutMetadataStayNil(t *testing.T) {
	builders := map[string]func(StoreEventInput) Event{
		VerbCreated: BuildCreatedEvent,
		VerbReset:   BuildResetEvent,
		VerbCleared: BuildClearedEvent,
	}
	for verb, build := range builders {
		event := build(StoreEventInput{StoreID: "s"})
		if event.Verb != verb {
			t.Fatalf("expected verb %q, got %q", verb, event.Verb)
		}
		if event.Metadata != nil {
			t.Fatalf("expected nil metadata for %q, got %+v", verb, event.Metadata)
		}
	}
}
