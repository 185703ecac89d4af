// Package simpstore is a minimal state container: named, lazily constructed
// singleton stores holding mutable state plus the functions that operate on
// it.
//
// A store is defined once and resolved through its accessor:
//
//	type Counter struct {
//	    Count int `json:"count"`
//	}
//
//	func (c *Counter) Increment() { c.Count++ }
//
//	var UseCounter = simpstore.Define("counter", func() (Counter, error) {
//	    return Counter{}, nil
//	}, simpstore.WithPersist(true))
//
//	store, err := UseCounter()
//	store.Update(func(c *Counter) { c.Increment() })
//
// Persisted stores use DefaultStorage unless WithStorage is given. It keeps
// records in memory only, so durable state across restarts needs a real
// backend such as pkg/storage/bolt:
//
//	db, err := bolt.Open("state.db")
//	useCounter := simpstore.Define("counter", setup,
//	    simpstore.WithPersist(true), simpstore.WithStorage(db))
//
// Every call to the accessor returns the same *Store. Persisted stores load
// `simp-store:<id>` from their storage.Storage once at construction and, after
// each Mutate/Update/Commit that changes a data field, write the tracked
// fields back after a 300ms debounce. Fields whose JSON name starts with "$"
// are reserved: never persisted and never overwritten by Reset.
//
// Stores are recorded in a Registry (DefaultRegistry unless WithRegistry is
// used) for inspection, bulk reset and bulk clear.
package simpstore
