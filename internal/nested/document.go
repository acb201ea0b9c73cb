/*
PURPOSE:
  Ordered, nested key-value document used for every piece of model configuration.
  Keys are strings, values are scalars, lists or nested Documents.

REQUIREMENTS:
  User-specified:
  - Dotted keys ("a.b.c") address nested documents; they are a view, not a storage form.
  - Integer-looking keys are stored as strings.
  - Insertion order is preserved so dumped YAML reads like the input.

  Implementation-discovered:
  - Values arriving from yaml.v3 or from Go callers come in many numeric types;
    they are normalised to int / float64 on insertion.
  - Go maps passed in by callers are converted to Documents (dotted keys expanded).

ARCHITECTURE INTEGRATION:
  - Used by: every other internal package.
  - Dependencies: none beyond the standard library (yaml.v3 lives in yaml.go).

ERROR HANDLING:
  - Structural violations are returned immediately as *KeyError / *ParseError.
  - Nothing here logs; callers decide.

IMPLEMENTATION RULES:
  - Composition over an ordered map; no exported bulk mutators that bypass Set.
  - Never store a Go map directly; always convert via normalize().

USAGE:
  d := nested.New()
  _ = d.Set("techs.ccgt.essentials.parent", "supply")
  v, err := d.Get("techs.ccgt.essentials.parent")

SELF-HEALING INSTRUCTIONS:
  - If a new scalar type shows up from a decoder, add it to normalize().

RELATED FILES:
  - internal/nested/path.go
  - internal/nested/union.go
  - internal/nested/yaml.go

MAINTENANCE:
  - Keep AsMap() and Copy() in sync with the set of supported value types.
*/

package nested

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Document is an ordered mapping from string keys to values.
type Document struct {
	keys   []string
	values map[string]any
}

// New returns an empty Document.
func New() *Document {
	return &Document{values: make(map[string]any)}
}

// FromMap builds a Document from a Go map. Dotted keys are expanded into
// nested Documents, exactly as if each entry had been passed to Set.
// Map keys are visited in sorted order because Go maps carry none.
func FromMap(m map[string]any) (*Document, error) {
	d := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := d.Set(k, m[k]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustFromMap is FromMap for literals in tests and built-in tables.
func MustFromMap(m map[string]any) *Document {
	d, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return d
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the top-level keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// put stores v under a single (non-dotted) key, keeping first-insertion order.
func (d *Document) put(key string, v any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// remove drops a single (non-dotted) key.
func (d *Document) remove(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// child returns the value stored under a single key.
func (d *Document) child(key string) (any, bool) {
	if d == nil || d.values == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Copy returns a deep copy. Lists and nested Documents are never shared.
func (d *Document) Copy() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]any, len(d.values)),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = copyValue(v)
	}
	return out
}

// CopyValue deep-copies a value read out of a Document.
func CopyValue(v any) any {
	return copyValue(v)
}

func copyValue(v any) any {
	switch t := v.(type) {
	case *Document:
		return t.Copy()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// AsMap converts the Document into plain nested Go maps and slices.
func (d *Document) AsMap() map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		out[k] = plainValue(d.values[k])
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Document:
		return t.AsMap()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether both documents hold the same keys and values,
// ignoring key order.
func (d *Document) Equal(other *Document) bool {
	return reflect.DeepEqual(d.AsMap(), other.AsMap())
}

// normalize converts caller-supplied values into the closed set of types a
// Document stores: nil, bool, int, float64, string, []any and *Document.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, int, float64, string, *Document:
		return t, nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return int(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return float64(t), nil
		}
		return int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return float64(t), nil
		}
		return int(t), nil
	case float32:
		return float64(t), nil
	case map[string]any:
		return FromMap(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = item
		}
		return FromMap(m)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = item
		}
		return FromMap(m)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, nil
	case []int:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, nil
	case []*Document:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
