// Package provenance records where each resolved configuration value came from.
//
// Labels are stored in a nested.Document keyed by the same dotted paths as the
// model run, so the result can be dumped next to it as the debug document.
package provenance

import (
	"errors"
	"strings"

	"github.com/daryltucker/modelrun/internal/nested"
)

// Provenance labels shared by the resolution stages.
const (
	AppliedFromOverride     = "Applied from override"
	OverriddenViaDictionary = "Overridden via override dictionary."
	FromDefaultPalette      = "From Calliope default palette"
)

// FromParent is the label for a value inherited from a tech group.
func FromParent(group string) string {
	return "From parent tech_group `" + group + "`"
}

// Tracker maps dotted keys to provenance labels. Later records win.
type Tracker struct {
	doc *nested.Document
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{doc: nested.New()}
}

// Record labels key. A label already stored on an ancestor of key is dropped
// so the deeper, more specific record can be kept.
func (t *Tracker) Record(key, label string) {
	err := t.doc.Replace(key, label)
	if !errors.Is(err, nested.ErrInvalidPath) {
		return
	}
	segs := strings.Split(key, ".")
	for i := 1; i < len(segs); i++ {
		prefix := strings.Join(segs[:i], ".")
		if _, isLabel := t.doc.GetOr(prefix, nil).(string); isLabel {
			_ = t.doc.Delete(prefix)
			break
		}
	}
	_ = t.doc.Replace(key, label)
}

// RecordAll labels every key with the same label.
func (t *Tracker) RecordAll(keys []string, label string) {
	for _, k := range keys {
		t.Record(k, label)
	}
}

// Label returns the label for key, or "".
func (t *Tracker) Label(key string) string {
	s, _ := t.doc.GetOr(key, nil).(string)
	return s
}

// Has reports whether key carries a label.
func (t *Tracker) Has(key string) bool {
	return t.Label(key) != ""
}

// Absorb copies every label of other into t, with prefix (if non-empty)
// prepended to each key.
func (t *Tracker) Absorb(other *Tracker, prefix string) {
	if other == nil {
		return
	}
	for _, k := range other.Paths() {
		if prefix != "" {
			t.Record(prefix+"."+k, other.Label(k))
		} else {
			t.Record(k, other.Label(k))
		}
	}
}

// Paths lists every labelled key in sorted order.
func (t *Tracker) Paths() []string {
	return t.doc.FlatKeys()
}

// Document returns a copy of the labels as a nested document.
func (t *Tracker) Document() *nested.Document {
	return t.doc.Copy()
}
