/*
PURPOSE:
  Finds time series references in a configuration. A string value of the
  form `file=<path>[:<column>]` or `df=<key>[:<column>]` stands for
  externally supplied data instead of a literal.

REQUIREMENTS:
  User-specified:
  - Split on `=`, then on the last `:` of the remainder.
  - Report the variable each reference feeds: `cost_<type>` for costs,
    `carrier_ratios` for carrier ratios, otherwise the constraint name.

ARCHITECTURE INTEGRATION:
  - Called by: Process in this package, on flattened nodes and model sections.

RELATED FILES:
  - internal/model/types.go (Reference)
*/

package timeseries

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/model"
	"github.com/daryltucker/modelrun/internal/nested"
)

// ParseReference parses a `file=` / `df=` shorthand. ok is false for values
// that are not shorthand at all.
func ParseReference(value any) (model.Reference, bool) {
	s, isString := value.(string)
	if !isString {
		return model.Reference{}, false
	}
	source, rest, found := strings.Cut(s, "=")
	if !found {
		return model.Reference{}, false
	}
	// Only the text up to a second '=' names the data, as in "file=a.csv=x".
	rest, _, _ = strings.Cut(rest, "=")
	ref := model.Reference{Source: source, Key: rest}
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		ref.Key, ref.Column = rest[:i], rest[i+1:]
	}
	return ref, true
}

// References is the set of data sources a configuration section points at,
// plus the names of the variables they feed.
type References struct {
	Sources []model.Reference // unique (Source, Key), sorted
	Columns []model.Reference // unique (Source, Key, Column), sorted
	Vars    []string          // unique, sorted
}

// CollectReferences scans the flattened entries of section for shorthand
// values.
func CollectReferences(section *nested.Document) (References, error) {
	var refs References
	sources := make(map[model.Reference]struct{})
	columns := make(map[model.Reference]struct{})
	vars := make(map[string]struct{})

	for _, e := range section.Flatten() {
		ref, ok := ParseReference(e.Value)
		if !ok {
			continue
		}
		if ref.Source != model.SourceFile && ref.Source != model.SourceDataFrame {
			return References{}, fmt.Errorf("unrecognised timeseries data source `%s` in `%s`", ref.Source, e.Key)
		}
		sources[model.Reference{Source: ref.Source, Key: ref.Key}] = struct{}{}
		columns[ref] = struct{}{}
		vars[variableName(e.Key)] = struct{}{}
	}

	for r := range sources {
		refs.Sources = append(refs.Sources, r)
	}
	for r := range columns {
		refs.Columns = append(refs.Columns, r)
	}
	sortReferences(refs.Sources)
	sortReferences(refs.Columns)
	refs.Vars = make([]string, 0, len(vars))
	for v := range vars {
		refs.Vars = append(refs.Vars, v)
	}
	sort.Strings(refs.Vars)
	return refs, nil
}

func variableName(key string) string {
	segs := strings.Split(key, ".")
	last := segs[len(segs)-1]
	switch {
	case strings.Contains(key, ".costs."):
		return "cost_" + last
	case strings.Contains(key, ".carrier_ratios."):
		return "carrier_ratios"
	default:
		return last
	}
}

func sortReferences(refs []model.Reference) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Column < b.Column
	})
}
