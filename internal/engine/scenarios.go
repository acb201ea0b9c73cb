package engine

import (
	"fmt"

	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/overrides"
)

// Scenario is one declared scenario and the overrides it expands to.
type Scenario struct {
	Name      string
	Overrides []string
	Err       error
}

// Catalog is what a model file declares for `--scenario`.
type Catalog struct {
	Overrides []string
	Scenarios []Scenario
}

// Scenarios lists the overrides and scenarios declared in the model at path.
// A scenario that does not expand cleanly is listed with its error instead of
// failing the whole listing.
func Scenarios(path string) (*Catalog, error) {
	config, err := nested.LoadFile(path, nested.TopLevelImports)
	if err != nil {
		return nil, fmt.Errorf("failed to load model file %s: %w", path, err)
	}

	c := &Catalog{Overrides: config.Doc("overrides").Keys()}
	for _, name := range config.Doc("scenarios").Keys() {
		names, _, err := overrides.ScenarioOverrides(config, name)
		c.Scenarios = append(c.Scenarios, Scenario{Name: name, Overrides: names, Err: err})
	}
	return c, nil
}
