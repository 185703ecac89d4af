package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ReservedPrefix marks members that are never persisted, loaded or reset.
const ReservedPrefix = "$"

var (
	stringType    = reflect.TypeOf("")
	anyType       = reflect.TypeOf((*any)(nil)).Elem()
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

var ErrUnsupportedType = errors.New("hydrate: state must be a struct or map[string]any")

// Field describes one member of a state struct as it appears in the record.
// Index is the reflect index path, longer than one for fields promoted from
// embedded structs.
type Field struct {
	Name     string
	Index    []int
	Func     bool
	Reserved bool
	Skip     bool
}

// Tracked reports whether the field takes part in persistence.
func (f Field) Tracked() bool {
	return !f.Func && !f.Reserved && !f.Skip
}

// Codec converts a state value T to and from its persisted record: a JSON
// object holding only tracked members. T is a struct or map[string]any.
type Codec[T any] struct {
	typ    reflect.Type
	isMap  bool
	fields []Field
}

// NewCodec inspects T once and caches its field table.
func NewCodec[T any]() (*Codec[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	c := &Codec[T]{typ: typ}
	switch typ.Kind() {
	case reflect.Map:
		if typ.Key() != stringType || typ.Elem() != anyType {
			return nil, fmt.Errorf("%w: got %s", ErrUnsupportedType, typ)
		}
		c.isMap = true
	case reflect.Struct:
		c.fields = structFields(typ)
	default:
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedType, typ)
	}
	return c, nil
}

// Fields returns a copy of the struct field table. Maps have no static table.
func (c *Codec[T]) Fields() []Field {
	return append([]Field(nil), c.fields...)
}

// structFields lists the members of typ the way encoding/json sees them:
// fields of embedded structs without a JSON name are promoted into the
// parent record, a shallower field hides deeper ones of the same name and
// same-depth duplicates cancel out. Embedded struct pointers and types with
// their own MarshalJSON are kept as one named member.
func structFields(typ reflect.Type) []Field {
	type candidate struct {
		field Field
		depth int
	}
	var all []candidate
	var walk func(t reflect.Type, index []int, depth int)
	walk = func(t reflect.Type, index []int, depth int) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			path := append(append([]int(nil), index...), i)
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct && !hasJSONName(sf) && !isMarshaler(sf.Type) {
				walk(sf.Type, path, depth+1)
				continue
			}
			if !sf.IsExported() {
				continue
			}
			name, skip := jsonName(sf)
			all = append(all, candidate{depth: depth, field: Field{
				Name:     name,
				Index:    path,
				Func:     !isData(sf.Type),
				Reserved: strings.HasPrefix(name, ReservedPrefix),
				Skip:     skip,
			}})
		}
	}
	walk(typ, nil, 0)

	shallowest := map[string]int{}
	count := map[string]int{}
	for _, c := range all {
		depth, ok := shallowest[c.field.Name]
		switch {
		case !ok || c.depth < depth:
			shallowest[c.field.Name] = c.depth
			count[c.field.Name] = 1
		case c.depth == depth:
			count[c.field.Name]++
		}
	}
	fields := make([]Field, 0, len(all))
	for _, c := range all {
		if c.depth == shallowest[c.field.Name] && count[c.field.Name] == 1 {
			fields = append(fields, c.field)
		}
	}
	return fields
}

func isMarshaler(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

func hasJSONName(sf reflect.StructField) bool {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return false
	}
	name, _, _ := strings.Cut(tag, ",")
	return name != ""
}

func jsonName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return sf.Name, false
	}
	if tag == "-" {
		return sf.Name, true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name, false
	}
	return name, false
}

func isData(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

// Encode marshals the tracked members of state. Keys are sorted so equal
// states always produce equal bytes.
func (c *Codec[T]) Encode(state *T) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("hydrate: state is nil")
	}
	record := map[string]json.RawMessage{}
	value := reflect.ValueOf(state).Elem()
	if c.isMap {
		iter := value.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if strings.HasPrefix(key, ReservedPrefix) || !isDataValue(iter.Value()) {
				continue
			}
			raw, err := json.Marshal(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("hydrate: encode key %q: %w", key, err)
			}
			record[key] = raw
		}
		return json.Marshal(record)
	}
	for _, field := range c.fields {
		if !field.Tracked() {
			continue
		}
		raw, err := json.Marshal(value.FieldByIndex(field.Index).Interface())
		if err != nil {
			return nil, fmt.Errorf("hydrate: encode field %q: %w", field.Name, err)
		}
		record[field.Name] = raw
	}
	return json.Marshal(record)
}

func isDataValue(v reflect.Value) bool {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return true
		}
		v = v.Elem()
	}
	return isData(v.Type())
}

// Snapshot returns the tracked members as plain JSON values.
func (c *Codec[T]) Snapshot(state *T) (map[string]any, error) {
	raw, err := c.Encode(state)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("hydrate: snapshot: %w", err)
	}
	return out, nil
}

// Apply overwrites the tracked members of state found in the persisted
// record. Members absent from the record keep their current values. Nothing
// is written unless every member decodes.
func (c *Codec[T]) Apply(state *T, payload []byte) error {
	if state == nil {
		return fmt.Errorf("hydrate: state is nil")
	}
	var record map[string]json.RawMessage
	if err := json.Unmarshal(payload, &record); err != nil {
		return fmt.Errorf("hydrate: decode record: %w", err)
	}
	if record == nil {
		return fmt.Errorf("hydrate: record is not an object")
	}

	value := reflect.ValueOf(state).Elem()
	if c.isMap {
		decoded := make(map[string]any, len(record))
		for key, raw := range record {
			if strings.HasPrefix(key, ReservedPrefix) {
				continue
			}
			if existing := value.MapIndex(reflect.ValueOf(key)); existing.IsValid() && !isDataValue(existing) {
				continue
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("hydrate: decode key %q: %w", key, err)
			}
			decoded[key] = v
		}
		if value.IsNil() {
			value.Set(reflect.MakeMapWithSize(c.typ, len(decoded)))
		}
		for key, v := range decoded {
			value.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(&v).Elem())
		}
		return nil
	}

	type pending struct {
		index []int
		value reflect.Value
	}
	updates := make([]pending, 0, len(record))
	for _, field := range c.fields {
		if !field.Tracked() {
			continue
		}
		raw, ok := record[field.Name]
		if !ok {
			continue
		}
		target := reflect.New(c.typ.FieldByIndex(field.Index).Type)
		if err := json.Unmarshal(raw, target.Interface()); err != nil {
			return fmt.Errorf("hydrate: decode field %q: %w", field.Name, err)
		}
		updates = append(updates, pending{index: field.Index, value: target.Elem()})
	}
	for _, update := range updates {
		value.FieldByIndex(update.index).Set(update.value)
	}
	return nil
}

// Assign copies every non-reserved member of src onto dst, keeping dst's
// identity. Map states gain and overwrite keys but never lose them.
func (c *Codec[T]) Assign(dst, src *T) {
	if dst == nil || src == nil {
		return
	}
	target := reflect.ValueOf(dst).Elem()
	source := reflect.ValueOf(src).Elem()
	if c.isMap {
		if target.IsNil() {
			target.Set(reflect.MakeMapWithSize(c.typ, source.Len()))
		}
		iter := source.MapRange()
		for iter.Next() {
			if strings.HasPrefix(iter.Key().String(), ReservedPrefix) {
				continue
			}
			target.SetMapIndex(iter.Key(), iter.Value())
		}
		return
	}

	var saved []reflect.Value
	for _, field := range c.fields {
		if field.Reserved {
			keep := reflect.New(c.typ.FieldByIndex(field.Index).Type).Elem()
			keep.Set(target.FieldByIndex(field.Index))
			saved = append(saved, keep)
		}
	}
	target.Set(source)
	i := 0
	for _, field := range c.fields {
		if field.Reserved {
			target.FieldByIndex(field.Index).Set(saved[i])
			i++
		}
	}
}
