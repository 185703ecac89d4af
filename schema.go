package simpstore

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes one leaf of a store snapshot by dotted path and
// JSON type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// DescribeSnapshot flattens snapshot into descriptors sorted by path. Nested
// objects are walked; arrays are described by their first element.
func DescribeSnapshot(snapshot map[string]any) []FieldDescriptor {
	fields := describeValue(snapshot, "")
	if fields == nil {
		return []FieldDescriptor{}
	}
	return fields
}

func describeValue(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "object"}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, describeValue(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		element := "any"
		if len(typed) > 0 {
			element = jsonTypeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + element}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: jsonTypeName(typed)}}
	}
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
