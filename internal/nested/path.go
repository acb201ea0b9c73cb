package nested

import (
	"strings"
)

func splitKey(key string) ([]string, error) {
	segs := strings.Split(key, ".")
	for _, s := range segs {
		if s == "" {
			return nil, &KeyError{Key: key, Err: ErrInvalidPath}
		}
	}
	return segs, nil
}

// Get resolves a dotted key. A missing segment yields ErrKeyNotFound and a
// segment that runs through a scalar yields ErrInvalidPath, both wrapped in
// *KeyError.
func (d *Document) Get(key string) (any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	cur := d
	for i, seg := range segs {
		v, ok := cur.child(seg)
		if !ok {
			return nil, &KeyError{Key: strings.Join(segs[:i+1], "."), Err: ErrKeyNotFound}
		}
		if i == len(segs)-1 {
			return v, nil
		}
		next, isDoc := v.(*Document)
		if !isDoc {
			if v == nil {
				return nil, &KeyError{Key: strings.Join(segs[:i+2], "."), Err: ErrKeyNotFound}
			}
			return nil, &KeyError{Key: strings.Join(segs[:i+1], "."), Err: ErrInvalidPath}
		}
		cur = next
	}
	return nil, &KeyError{Key: key, Err: ErrKeyNotFound}
}

// GetOr is Get with a fallback returned whenever the key cannot be resolved.
func (d *Document) GetOr(key string, def any) any {
	v, err := d.Get(key)
	if err != nil {
		return def
	}
	return v
}

// Child returns the value stored directly under key, without treating dots
// as path separators. It is the accessor for names such as links ("a,b")
// that are never split.
func (d *Document) Child(key string) (any, bool) {
	return d.child(key)
}

// Has reports whether the dotted key resolves.
func (d *Document) Has(key string) bool {
	_, err := d.Get(key)
	return err == nil
}

// Doc returns the sub-document at key, or nil when the key is absent or
// holds something else.
func (d *Document) Doc(key string) *Document {
	sub, _ := d.GetOr(key, nil).(*Document)
	return sub
}

// String returns the string at key, or def.
func (d *Document) String(key, def string) string {
	if s, ok := d.GetOr(key, nil).(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def.
func (d *Document) Bool(key string, def bool) bool {
	if b, ok := d.GetOr(key, nil).(bool); ok {
		return b
	}
	return def
}

// Float returns the number at key as float64. ok is false for non-numbers.
func (d *Document) Float(key string) (float64, bool) {
	return AsFloat(d.GetOr(key, nil))
}

// AsFloat converts a stored numeric value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Set stores value under a dotted key, creating intermediate documents.
// An intermediate null is replaced by a fresh document; any other scalar is
// an ErrInvalidPath. When both the existing and the new value are Documents
// they are merged key by key instead of replaced.
func (d *Document) Set(key string, value any) error {
	return d.set(key, value, true)
}

// Replace is Set without the implicit document merge: the value at key is
// swapped out wholesale.
func (d *Document) Replace(key string, value any) error {
	return d.set(key, value, false)
}

func (d *Document) set(key string, value any, merge bool) error {
	segs, err := splitKey(key)
	if err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return &KeyError{Key: key, Err: err}
	}
	cur := d
	for i, seg := range segs[:len(segs)-1] {
		existing, _ := cur.child(seg)
		switch e := existing.(type) {
		case *Document:
			cur = e
		case nil:
			next := New()
			cur.put(seg, next)
			cur = next
		default:
			return &KeyError{Key: strings.Join(segs[:i+1], "."), Err: ErrInvalidPath}
		}
	}
	last := segs[len(segs)-1]
	if merge {
		if incoming, ok := v.(*Document); ok {
			if existing, ok := cur.values[last].(*Document); ok && existing != incoming {
				return existing.mergeFrom(incoming)
			}
		}
	}
	cur.put(last, v)
	return nil
}

func (d *Document) mergeFrom(other *Document) error {
	for _, k := range other.keys {
		v := other.values[k]
		if incoming, ok := v.(*Document); ok {
			if existing, ok := d.values[k].(*Document); ok {
				if err := existing.mergeFrom(incoming); err != nil {
					return err
				}
				continue
			}
		}
		d.put(k, copyValue(v))
	}
	return nil
}

// Delete removes a dotted key. Parents left empty by the removal are removed
// as well, all the way up.
func (d *Document) Delete(key string) error {
	segs, err := splitKey(key)
	if err != nil {
		return err
	}
	chain := []*Document{d}
	cur := d
	for i, seg := range segs[:len(segs)-1] {
		v, ok := cur.child(seg)
		if !ok || v == nil {
			return &KeyError{Key: strings.Join(segs[:i+1], "."), Err: ErrKeyNotFound}
		}
		next, isDoc := v.(*Document)
		if !isDoc {
			return &KeyError{Key: strings.Join(segs[:i+1], "."), Err: ErrInvalidPath}
		}
		chain = append(chain, next)
		cur = next
	}
	last := segs[len(segs)-1]
	if _, ok := cur.child(last); !ok {
		return &KeyError{Key: key, Err: ErrKeyNotFound}
	}
	cur.remove(last)
	for i := len(chain) - 1; i > 0; i-- {
		if chain[i].Len() > 0 {
			break
		}
		chain[i-1].remove(segs[i-1])
	}
	return nil
}
