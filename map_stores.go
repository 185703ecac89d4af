package simpstore

import "sort"

// Resolver yields a store instance. Accessor implements it for every state
// type.
type Resolver interface {
	Resolve() (Instance, error)
}

// MapStores resolves every accessor and returns the instances under the same
// keys. Keys are resolved in sorted order and the first failure is returned.
func MapStores(accessors map[string]Resolver) (map[string]Instance, error) {
	keys := make([]string, 0, len(accessors))
	for key := range accessors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]Instance, len(accessors))
	for _, key := range keys {
		resolver := accessors[key]
		if resolver == nil {
			return nil, wrapStoreError(key, OpSetup, ErrNilSetup)
		}
		instance, err := resolver.Resolve()
		if err != nil {
			return nil, err
		}
		out[key] = instance
	}
	return out, nil
}
