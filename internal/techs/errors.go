package techs

import (
	"fmt"
	"strings"
)

// MissingParentError: a tech or non-built-in tech group has no essentials.parent.
type MissingParentError struct {
	Kind string // "tech" or "tech_group"
	Name string
}

func (e *MissingParentError) Error() string {
	return fmt.Sprintf("%s `%s` does not define `essentials.parent`", e.Kind, e.Name)
}

// InvalidParentTypeError: a parent names a technology instead of a tech group.
type InvalidParentTypeError struct {
	Kind   string
	Name   string
	Parent string
}

func (e *InvalidParentTypeError) Error() string {
	if e.Kind == "tech" {
		return fmt.Sprintf("tech `%s` has another tech as a parent (`%s`), only tech_groups are allowed", e.Name, e.Parent)
	}
	return fmt.Sprintf("tech_group `%s` has a tech as a parent (`%s`), only tech_groups are allowed", e.Name, e.Parent)
}

// UnresolvedInheritanceError: the chain does not end at a built-in group.
type UnresolvedInheritanceError struct {
	Tech   string
	Chain  []string
	Reason string
}

func (e *UnresolvedInheritanceError) Error() string {
	return fmt.Sprintf("tech `%s` must inherit from a built-in tech group (%s; chain: %s)",
		e.Tech, e.Reason, strings.Join(e.Chain, " -> "))
}

// CarrierError is a carrier derivation finding for one technology.
type CarrierError struct {
	Tech    string
	Message string
}

func (e *CarrierError) Error() string {
	return e.Message
}
