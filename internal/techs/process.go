/*
PURPOSE:
  Expands every technology down its tech_group inheritance chain and derives
  the attributes a model run needs but users usually leave implicit.

REQUIREMENTS:
  User-specified:
  - tech -> tech_group -> ... -> built-in group; a tech may never be a parent.
  - essentials and *_systemwide constraints merge from the root group down to the tech.
  - required/allowed constraint, cost and switch lists come from the root group only.
  - carrier_in / carrier_out default from `carrier` per root group.
  - conversion_plus techs get a primary carrier per direction.
  - techs without a color take the next entry of a fixed 10-color palette.
  - All techs are processed; every error is returned together.

  Implementation-discovered:
  - A tech_group chain can loop or name an undefined group; both surface as
    UnresolvedInheritanceError so the walk always terminates.

ARCHITECTURE INTEGRATION:
  - Called by: internal/preprocess (step 2 of model run assembly).
  - Feeds: internal/nodes (inheritance chains), internal/checks (post-inheritance).

ERROR HANDLING:
  - Structural and carrier problems are collected in Result.Errors; nothing is
    returned early except failures to read the built-in defaults.

RELATED FILES:
  - internal/techs/errors.go
  - internal/assets/defaults.yaml (built-in groups)
*/

package techs

import (
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/assets"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/provenance"
)

// Palette is cycled through for techs without essentials.color.
var Palette = []string{
	"#19122b",
	"#17344c",
	"#185b48",
	"#3c7632",
	"#7e7a36",
	"#bc7967",
	"#d486af",
	"#caa9e7",
	"#c2d2f3",
	"#d6f0ef",
}

// inheritedLists are copied verbatim from the root built-in group.
var inheritedLists = []string{
	"required_constraints",
	"allowed_constraints",
	"allowed_costs",
	"allowed_switches",
}

// Result holds the processed technologies keyed by name.
type Result struct {
	Techs  *nested.Document
	Debug  *provenance.Tracker
	Errors []error
}

// Parents returns the inheritance chain of tech, nearest group first and the
// built-in root group last.
func Parents(config *nested.Document, tech string) ([]string, error) {
	builtins, err := builtinSet()
	if err != nil {
		return nil, err
	}
	return parents(config, tech, builtins)
}

func parents(config *nested.Document, tech string, builtins map[string]bool) ([]string, error) {
	techDefs := config.Doc("techs")
	groupDefs := config.Doc("tech_groups")

	kind, name := "tech", tech
	def, _ := techDefs.Child(tech)
	parent, _ := essentialsParent(def)
	if parent == "" {
		return nil, &MissingParentError{Kind: kind, Name: name}
	}

	var chain []string
	visited := make(map[string]bool)
	for {
		if _, isTech := techDefs.Child(parent); isTech {
			return nil, &InvalidParentTypeError{Kind: kind, Name: name, Parent: parent}
		}
		groupDef, isGroup := groupDefs.Child(parent)
		if !isGroup {
			return nil, &UnresolvedInheritanceError{
				Tech: tech, Chain: append(chain, parent),
				Reason: "`" + parent + "` is not a defined tech_group",
			}
		}
		if visited[parent] {
			return nil, &UnresolvedInheritanceError{
				Tech: tech, Chain: append(chain, parent),
				Reason: "tech_group `" + parent + "` is part of an inheritance loop",
			}
		}
		visited[parent] = true
		chain = append(chain, parent)

		next, _ := essentialsParent(groupDef)
		if next == "" {
			if !builtins[parent] {
				return nil, &MissingParentError{Kind: "tech_group", Name: parent}
			}
			return chain, nil
		}
		kind, name, parent = "tech_group", parent, next
	}
}

func essentialsParent(def any) (string, bool) {
	d, ok := def.(*nested.Document)
	if !ok {
		return "", false
	}
	s, ok := d.GetOr("essentials.parent", nil).(string)
	return s, ok
}

func builtinSet() (map[string]bool, error) {
	groups, err := assets.BaseTechGroups()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(groups))
	for _, g := range groups {
		set[g] = true
	}
	return set, nil
}

// Process expands every technology in config. Techs with `exists: false`
// are skipped.
func Process(config *nested.Document) (*Result, error) {
	builtins, err := builtinSet()
	if err != nil {
		return nil, err
	}
	res := &Result{Techs: nested.New(), Debug: provenance.New()}
	groupDefs := config.Doc("tech_groups")
	techDefs := config.Doc("techs")

	colorIdx := 0
	for _, tech := range techDefs.Keys() {
		raw, _ := techDefs.Child(tech)
		def, _ := raw.(*nested.Document)
		if def == nil {
			def = nested.New()
		}
		if !def.Bool("exists", true) {
			continue
		}

		chain, err := parents(config, tech, builtins)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		root := chain[len(chain)-1]

		essentials := nested.New()
		constraints := nested.New()
		for i := len(chain) - 1; i >= 0; i-- {
			group := groupDefs.Doc(chain[i])
			groupEss := group.Doc("essentials")
			for _, k := range groupEss.FlatKeys() {
				res.Debug.Record(tech+".essentials."+k, provenance.FromParent(chain[i]))
			}
			if err := mergeLayer(essentials, constraints, group); err != nil {
				res.Errors = append(res.Errors, err)
			}
		}
		if err := mergeLayer(essentials, constraints, def); err != nil {
			res.Errors = append(res.Errors, err)
		}

		out := nested.New()
		inheritance := make([]any, len(chain))
		for i, g := range chain {
			inheritance[i] = g
		}
		_ = out.Set("inheritance", inheritance)

		for _, msg := range deriveCarriers(tech, root, essentials, res.Debug) {
			res.Errors = append(res.Errors, &CarrierError{Tech: tech, Message: msg})
		}

		if c, _ := essentials.GetOr("color", nil).(string); c == "" {
			_ = essentials.Set("color", Palette[colorIdx%len(Palette)])
			colorIdx++
			res.Debug.Record(tech+".essentials.color", provenance.FromDefaultPalette)
		}

		_ = out.Set("essentials", essentials)
		_ = out.Set("constraints", constraints)
		for _, k := range inheritedLists {
			v := groupDefs.Doc(root).GetOr(k, []any{})
			_ = out.Set(k, nested.CopyValue(v))
		}
		_ = res.Techs.Replace(tech, out)
	}
	return res, nil
}

// mergeLayer folds one definition's essentials and systemwide constraints
// into the running result.
func mergeLayer(essentials, constraints, def *nested.Document) error {
	opts := nested.UnionOptions{AllowOverride: true}
	if ess := def.Doc("essentials"); ess != nil {
		if err := essentials.Union(ess, opts); err != nil {
			return err
		}
	}
	return constraints.Union(Systemwide(def), opts)
}

// Systemwide returns the constraints of def whose names end in `_systemwide`.
func Systemwide(def *nested.Document) *nested.Document {
	out := nested.New()
	cons := def.Doc("constraints")
	for _, k := range cons.Keys() {
		if strings.HasSuffix(k, "_systemwide") {
			v, _ := cons.Child(k)
			_ = out.Replace(k, v)
		}
	}
	return out
}

func deriveCarriers(tech, root string, ess *nested.Document, debug *provenance.Tracker) []string {
	var errs []string
	carrier, hasCarrier := ess.Child("carrier")

	if _, ok := ess.Child("carrier_in"); !ok {
		switch root {
		case "supply", "supply_plus":
		case "demand", "transmission", "storage":
			if hasCarrier {
				_ = ess.Set("carrier_in", nested.CopyValue(carrier))
				debug.Record(tech+".essentials.carrier_in", "Set from essentials.carrier")
			} else {
				errs = append(errs, "`carrier` or `carrier_in` must be defined for `"+tech+"`")
			}
		default:
			errs = append(errs, "`carrier_in` must be defined for `"+tech+"`")
		}
	}

	if _, ok := ess.Child("carrier_out"); !ok {
		switch root {
		case "demand":
		case "supply", "supply_plus", "transmission", "storage":
			if hasCarrier {
				_ = ess.Set("carrier_out", nested.CopyValue(carrier))
				debug.Record(tech+".essentials.carrier_out", "Set from essentials.carrier")
			} else {
				errs = append(errs, "`carrier` or `carrier_out` must be defined for `"+tech+"`")
			}
		default:
			errs = append(errs, "`carrier_out` must be defined for `"+tech+"`")
		}
	}

	if root == "conversion_plus" {
		for _, dir := range []string{"_in", "_out"} {
			carriers := Carriers(ess, "carrier"+dir)
			primaryKey := "primary_carrier" + dir
			primary, hasPrimary := ess.GetOr(primaryKey, nil).(string)
			switch {
			case len(carriers) == 0:
			case !hasPrimary && len(carriers) == 1:
				_ = ess.Set(primaryKey, carriers[0])
			case !hasPrimary:
				errs = append(errs, "Primary_carrier"+dir+" must be assigned for tech `"+tech+
					"` as there are multiple carriers"+dir)
			case !contains(carriers, primary):
				errs = append(errs, "Primary_carrier"+dir+" `"+primary+
					"` not one of the available carriers"+dir+" for `"+tech+"`")
			}
		}
	}
	return errs
}

// Carriers collects the sorted, de-duplicated carriers named under every
// essentials key starting with prefix ("carrier_in" also matches "carrier_in_2").
func Carriers(ess *nested.Document, prefix string) []string {
	set := make(map[string]struct{})
	for _, k := range ess.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		v, _ := ess.Child(k)
		switch c := v.(type) {
		case string:
			set[c] = struct{}{}
		case []any:
			for _, item := range c {
				if s, ok := item.(string); ok {
					set[s] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Groups maps every declared tech_group to the sorted techs inheriting from it.
func Groups(config, processed *nested.Document) *nested.Document {
	out := nested.New()
	for _, group := range config.Doc("tech_groups").Keys() {
		members := []any{}
		names := processed.Keys()
		sort.Strings(names)
		for _, tech := range names {
			chain, _ := processed.GetOr(tech+".inheritance", nil).([]any)
			for _, g := range chain {
				if g == group {
					members = append(members, tech)
					break
				}
			}
		}
		_ = out.Replace(group, members)
	}
	return out
}
