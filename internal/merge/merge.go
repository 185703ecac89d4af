// Package merge combines decoded JSON records.
package merge

// Records returns a new record holding every field of weak overridden by the
// fields of strong. Nested objects are merged key by key; any other value in
// strong, including null and arrays, replaces the weak value whole. Neither
// input is modified.
func Records(strong, weak map[string]any) map[string]any {
	result := make(map[string]any, len(weak)+len(strong))
	for key, value := range weak {
		result[key] = clone(value)
	}
	for key, value := range strong {
		strongObject, ok := value.(map[string]any)
		if !ok {
			result[key] = clone(value)
			continue
		}
		if weakObject, ok := result[key].(map[string]any); ok {
			result[key] = Records(strongObject, weakObject)
			continue
		}
		result[key] = clone(strongObject)
	}
	return result
}

func clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = clone(item)
		}
		return out
	default:
		return value
	}
}
