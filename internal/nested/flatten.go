package nested

import (
	"sort"
)

// Entry is one leaf of a flattened Document.
type Entry struct {
	Key   string
	Value any
}

// Flatten lists every leaf under its dotted key, visiting keys in sorted
// order at every level. Empty sub-documents count as leaves so that
// Unflatten(Flatten(d)) reproduces d.
func (d *Document) Flatten() []Entry {
	var out []Entry
	d.flattenInto("", &out)
	return out
}

func (d *Document) flattenInto(prefix string, out *[]Entry) {
	if d == nil {
		return
	}
	keys := d.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		v := d.values[k]
		if sub, ok := v.(*Document); ok && sub.Len() > 0 {
			sub.flattenInto(full, out)
			continue
		}
		*out = append(*out, Entry{Key: full, Value: v})
	}
}

// FlatKeys returns the dotted keys of Flatten in the same order.
func (d *Document) FlatKeys() []string {
	entries := d.Flatten()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Unflatten builds a nested Document from dotted entries.
func Unflatten(entries []Entry) (*Document, error) {
	d := New()
	for _, e := range entries {
		if err := d.Set(e.Key, copyValue(e.Value)); err != nil {
			return nil, err
		}
	}
	return d, nil
}
