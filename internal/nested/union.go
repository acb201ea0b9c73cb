package nested

import (
	"strings"
)

// ReplaceMarker is the key segment that asks Union to swap out the parent
// path wholesale instead of merging into it.
const ReplaceMarker = "_REPLACE_"

// UnionOptions controls how Union treats keys present on both sides.
type UnionOptions struct {
	// AllowOverride lets other overwrite keys that already exist.
	AllowOverride bool
	// AllowReplacement honours "<path>._REPLACE_" keys in other.
	AllowReplacement bool
	// AllowSubdictOverrideWithNone lets a null in other erase a non-empty
	// sub-document.
	AllowSubdictOverrideWithNone bool
}

// Union merges other into d in place. d keeps no references into other.
func (d *Document) Union(other *Document, opts UnionOptions) error {
	existing := make(map[string]struct{})
	for _, k := range d.FlatKeys() {
		existing[k] = struct{}{}
	}

	var merged []Entry
	var wiped []string
	seenWipe := make(map[string]struct{})
	for _, e := range other.Flatten() {
		if opts.AllowReplacement {
			if parent, ok := replaceParent(e.Key); ok {
				if _, dup := seenWipe[parent]; !dup {
					seenWipe[parent] = struct{}{}
					wiped = append(wiped, parent)
				}
				continue
			}
		}
		merged = append(merged, e)
	}

	for _, e := range merged {
		if _, clash := existing[e.Key]; clash && !opts.AllowOverride {
			return &KeyError{Key: e.Key, Err: ErrDuplicateKey}
		}
		if e.Value == nil && !opts.AllowSubdictOverrideWithNone {
			if sub := d.Doc(e.Key); sub != nil && sub.Len() > 0 {
				continue
			}
		}
		if err := d.Set(e.Key, copyValue(e.Value)); err != nil {
			return err
		}
	}

	for _, parent := range wiped {
		v, err := other.Get(parent + "." + ReplaceMarker)
		if err != nil {
			return err
		}
		if err := d.Replace(parent, copyValue(v)); err != nil {
			return err
		}
	}
	return nil
}

// replaceParent returns the path in front of the first marker segment.
func replaceParent(key string) (string, bool) {
	segs := strings.Split(key, ".")
	for i, s := range segs {
		if s == ReplaceMarker && i > 0 {
			return strings.Join(segs[:i], "."), true
		}
	}
	return "", false
}
