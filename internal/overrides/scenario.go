/*
PURPOSE:
  Turns a scenario selection into the ordered list of override names to apply
  and combines those overrides into one document.

REQUIREMENTS:
  User-specified:
  - A selection is either a declared scenario or a comma-separated list of names.
  - Scenarios may list other scenarios; expansion must terminate.
  - A declared scenario whose name contains commas is used as-is, with a warning.
  - Two overrides setting the same key is an authoring error naming both key and override.

  Implementation-discovered:
  - A scenario reached twice through different branches (a diamond) is not a
    cycle; only a scenario that is still being expanded can be a cycle.
  - Names keep first-seen order so the applied_overrides record is stable.

ERROR HANDLING:
  - Returns *UndefinedOverrideError, *InvalidScenarioError, *CircularScenarioError
    or *DuplicateKeyError; nothing is applied when any of them occurs.

RELATED FILES:
  - internal/overrides/apply.go
*/

package overrides

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/daryltucker/modelrun/internal/nested"
)

const (
	expanding = iota + 1
	expanded
)

type scenarioExpander struct {
	scenarios *nested.Document
	state     map[string]int
	stack     []string
	names     []string
	origin    map[string]string
}

// ScenarioOverrides flattens scenario into override names. Warnings are
// returned for the caller to surface.
func ScenarioOverrides(config *nested.Document, scenario string) ([]string, []string, error) {
	x := &scenarioExpander{
		scenarios: config.Doc("scenarios"),
		state:     make(map[string]int),
		origin:    make(map[string]string),
	}

	var warnings []string
	if x.isScenario(scenario) {
		if strings.Contains(scenario, ",") {
			warnings = append(warnings, "Scenario name `"+scenario+
				"` includes commas that won't be parsed as a list of overrides.")
		}
		if err := x.expand(scenario); err != nil {
			return nil, warnings, err
		}
	} else {
		for _, name := range strings.Split(scenario, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if err := x.member(name, ""); err != nil {
				return nil, warnings, err
			}
		}
	}

	defined := config.Doc("overrides")
	for _, name := range x.names {
		if _, ok := defined.Child(name); ok {
			continue
		}
		if from := x.origin[name]; from != "" {
			return nil, warnings, &InvalidScenarioError{Scenario: from, Member: name}
		}
		return nil, warnings, &UndefinedOverrideError{Name: name}
	}
	return x.names, warnings, nil
}

func (x *scenarioExpander) isScenario(name string) bool {
	_, ok := x.scenarios.Child(name)
	return ok
}

func (x *scenarioExpander) expand(name string) error {
	switch x.state[name] {
	case expanded:
		return nil
	case expanding:
		chain := append(append([]string{}, x.stack...), name)
		for i, n := range chain {
			if n == name {
				chain = chain[i:]
				break
			}
		}
		return &CircularScenarioError{Chain: chain}
	}

	x.state[name] = expanding
	x.stack = append(x.stack, name)

	raw, _ := x.scenarios.Child(name)
	var members []any
	switch v := raw.(type) {
	case []any:
		members = v
	case string:
		members = []any{v}
	default:
		return &InvalidScenarioError{Scenario: name, Member: raw}
	}
	for _, m := range members {
		s, ok := m.(string)
		if !ok {
			return &InvalidScenarioError{Scenario: name, Member: m}
		}
		if err := x.member(s, name); err != nil {
			return err
		}
	}

	x.stack = x.stack[:len(x.stack)-1]
	x.state[name] = expanded
	return nil
}

func (x *scenarioExpander) member(name, from string) error {
	if x.isScenario(name) {
		return x.expand(name)
	}
	if _, seen := x.origin[name]; seen {
		return nil
	}
	x.origin[name] = from
	x.names = append(x.names, name)
	return nil
}

// Combine merges the named overrides into one document. Overrides may not
// set the same key twice. Each override's own `import` list is expanded
// relative to the model file recorded under config_path.
func Combine(config *nested.Document, names []string) (*nested.Document, error) {
	baseDir := ""
	if p, ok := config.GetOr("config_path", nil).(string); ok && p != "" {
		baseDir = filepath.Dir(p)
	}
	defined := config.Doc("overrides")

	combined := nested.New()
	for _, name := range names {
		raw, ok := defined.Child(name)
		if !ok {
			return nil, &UndefinedOverrideError{Name: name}
		}
		ov, ok := raw.(*nested.Document)
		if !ok {
			ov = nested.New()
		}
		ov, err := nested.ResolveImports(ov.Copy(), nested.TopLevelImports, baseDir)
		if err != nil {
			return nil, err
		}
		if err := combined.Union(ov, nested.UnionOptions{}); err != nil {
			var ke *nested.KeyError
			if errors.As(err, &ke) && errors.Is(err, nested.ErrDuplicateKey) {
				return nil, &DuplicateKeyError{Key: ke.Key, Override: name}
			}
			return nil, err
		}
	}
	return combined, nil
}
