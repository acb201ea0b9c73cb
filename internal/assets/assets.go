/*
PURPOSE:
  Embeds the built-in defaults table and hands out private copies of it.

REQUIREMENTS:
  User-specified:
  - The defaults are the only process-wide state and must never be mutated.
  - Every model build merges against its own copy.

  Implementation-discovered:
  - The embedded YAML is parsed once on first use; parse failures are
    programming errors in the shipped file and are returned to every caller.

ARCHITECTURE INTEGRATION:
  - Used by: internal/overrides (bottom precedence layer), internal/checks
    (recognised model/run keys, built-in groups), internal/cli (defaults export).

IMPLEMENTATION RULES:
  - Callers only ever see Defaults() copies; the cached document is unexported.

RELATED FILES:
  - internal/assets/defaults.yaml
*/

package assets

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/daryltucker/modelrun/internal/nested"
)

// Version is the configuration format version this build understands.
// A model's model.calliope_version is compared against it.
const Version = "0.7.0"

//go:embed defaults.yaml
var DefaultsYAML []byte

var (
	loadOnce sync.Once
	defaults *nested.Document
	loadErr  error
)

func load() {
	defaults, loadErr = nested.Load(DefaultsYAML, "defaults.yaml", nested.NoImports)
	if loadErr != nil {
		loadErr = fmt.Errorf("failed to load built-in defaults: %w", loadErr)
	}
}

// Defaults returns a fresh deep copy of the built-in defaults.
func Defaults() (*nested.Document, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	return defaults.Copy(), nil
}

// BaseTechGroups lists the built-in tech groups every inheritance chain must end at.
func BaseTechGroups() ([]string, error) {
	d, err := Defaults()
	if err != nil {
		return nil, err
	}
	return d.Doc("tech_groups").Keys(), nil
}
