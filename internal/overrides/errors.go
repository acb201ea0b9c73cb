package overrides

import (
	"fmt"
	"strings"

	"github.com/daryltucker/modelrun/internal/nested"
)

// UndefinedOverrideError names an override that the model does not define.
type UndefinedOverrideError struct {
	Name string
}

func (e *UndefinedOverrideError) Error() string {
	return fmt.Sprintf("Override `%s` is not defined.", e.Name)
}

// InvalidScenarioError reports a scenario whose members are not all
// override or scenario names.
type InvalidScenarioError struct {
	Scenario string
	Member   any
}

func (e *InvalidScenarioError) Error() string {
	return "Scenario definition must be a list of override or other scenario names."
}

// CircularScenarioError reports a scenario that includes itself, directly or
// through other scenarios. Chain ends with the repeated name.
type CircularScenarioError struct {
	Chain []string
}

func (e *CircularScenarioError) Error() string {
	return fmt.Sprintf("Scenario `%s` is defined in terms of itself: %s",
		e.Chain[len(e.Chain)-1], strings.Join(e.Chain, " -> "))
}

// DuplicateKeyError reports two overrides that set the same key.
type DuplicateKeyError struct {
	Key      string
	Override string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v: %s. Already specified but defined again in override `%s`.",
		nested.ErrDuplicateKey, e.Key, e.Override)
}

func (e *DuplicateKeyError) Unwrap() error {
	return nested.ErrDuplicateKey
}
