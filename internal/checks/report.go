/*
PURPOSE:
  Collects warnings and errors from one validation checkpoint and turns them
  into a single aggregated failure.

REQUIREMENTS:
  User-specified:
  - Every applicable check runs before anything is raised.
  - Warnings are emitted even when the checkpoint also fails.
  - One aggregate error carries every error message.

  Implementation-discovered:
  - Callers need errors.Is / errors.As access to the typed errors inside the
    aggregate (inheritance errors, resolver errors), so ModelError keeps the
    original error values and exposes them through Unwrap() []error.

ARCHITECTURE INTEGRATION:
  - Used by: internal/preprocess after each checkpoint, internal/overrides.
  - Warning sink: output.Logger.

ERROR HANDLING:
  - Raise returns nil when no errors were collected.

USAGE:
  var r checks.Report
  r.Warnf("Unrecognised top-level configuration item: %s", k)
  r.Errorf("Model is missing required top-level configuration item: %s", k)
  if err := r.Raise(); err != nil { return err }

RELATED FILES:
  - internal/checks/initial.go
  - internal/checks/post.go
  - internal/checks/final.go
*/

package checks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/daryltucker/modelrun/internal/output"
)

// Report is the outcome of one checkpoint.
type Report struct {
	Warnings []string
	Errors   []error
}

// Warnf records a non-fatal finding.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Errorf records a fatal finding.
func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Errorf(format, args...))
}

// AddError records an existing error value, keeping its type.
func (r *Report) AddError(errs ...error) {
	for _, err := range errs {
		if err != nil {
			r.Errors = append(r.Errors, err)
		}
	}
}

// Merge appends another report's findings.
func (r *Report) Merge(other Report) {
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Errors = append(r.Errors, other.Errors...)
}

// OK reports whether no errors were collected.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Raise emits every warning and returns a *ModelError if any error was collected.
func (r *Report) Raise() error {
	for _, w := range r.Warnings {
		output.Logger.Warn("Model warning", "message", w)
	}
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	copy(errs, r.Errors)
	return &ModelError{Errs: errs}
}

// ModelError is the aggregate failure of a checkpoint.
type ModelError struct {
	Errs []error
}

func (e *ModelError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("model configuration is invalid:\n- %s", strings.Join(msgs, "\n- "))
}

func (e *ModelError) Unwrap() []error {
	return e.Errs
}

// Messages returns the error texts of err if it is (or wraps) a ModelError,
// otherwise the single text of err.
func Messages(err error) []string {
	var me *ModelError
	if !errors.As(err, &me) {
		return []string{err.Error()}
	}
	out := make([]string, len(me.Errs))
	for i, e := range me.Errs {
		out[i] = e.Error()
	}
	return out
}
