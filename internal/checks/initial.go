/*
PURPOSE:
  First checkpoint of a model build. Runs on the merged configuration,
  before any technology inheritance is resolved.

REQUIREMENTS:
  User-specified:
  - model, run, nodes and techs must be present.
  - Unknown top-level, model and run keys are reported but tolerated.
  - Technology names may not collide with tech_group names.

  Implementation-discovered:
  - Recognised model and run keys are exactly the keys of the built-in
    defaults, so adding a setting means adding it to defaults.yaml.
  - `resource` is reserved as a carrier name because supply technologies
    draw on a resource that is not a carrier.

ARCHITECTURE INTEGRATION:
  - Called by: internal/preprocess.Build, right after overrides are applied.
  - Uses: internal/assets for recognised keys and the format version.

RELATED FILES:
  - internal/checks/post.go
  - internal/checks/final.go
*/

package checks

import (
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/assets"
	"github.com/daryltucker/modelrun/internal/nested"
)

var requiredTopLevel = []string{"model", "run", "nodes", "techs"}

var allowedTopLevel = map[string]bool{
	"model":       true,
	"run":         true,
	"nodes":       true,
	"techs":       true,
	"tech_groups": true,
	"links":       true,
	"overrides":   true,
	"scenarios":   true,
	"config_path": true,
}

var allowedTechKeys = map[string]bool{
	"essentials":  true,
	"constraints": true,
	"costs":       true,
	"switches":    true,
	"exists":      true,
}

// CarrierTiers are the essentials keys that may name carriers.
var CarrierTiers = []string{
	"carrier", "carrier_in", "carrier_out",
	"carrier_in_2", "carrier_out_2",
	"carrier_in_3", "carrier_out_3",
	"carrier_ratios",
}

// Initial checks the merged configuration before inheritance is resolved.
func Initial(config *nested.Document) Report {
	var r Report

	for _, k := range requiredTopLevel {
		if !config.Has(k) {
			r.Errorf("Model is missing required top-level configuration item: %s", k)
		}
	}
	for _, k := range config.Keys() {
		if !allowedTopLevel[k] {
			r.Warnf("Unrecognised top-level configuration item: %s", k)
		}
	}

	defaults, err := assets.Defaults()
	if err != nil {
		r.AddError(err)
		return r
	}
	for _, section := range []string{"model", "run"} {
		known := defaults.Doc(section)
		for _, k := range config.Doc(section).Keys() {
			if _, ok := known.Child(k); !ok {
				r.Warnf("Unrecognised setting in %s configuration: %s", section, k)
			}
		}
	}

	if v, ok := config.GetOr("model.calliope_version", nil).(string); ok && v != assets.Version {
		r.Warnf("Model configuration specifies calliope_version %s, but you are running %s. Proceed with caution!", v, assets.Version)
	}

	groups := config.Doc("tech_groups")
	techDefs := config.Doc("techs")
	for _, tech := range techDefs.Keys() {
		if _, clash := groups.Child(tech); clash {
			r.Errorf("tech `%s` has the same name as a tech_group", tech)
		}
		raw, _ := techDefs.Child(tech)
		def, _ := raw.(*nested.Document)
		for _, k := range def.Keys() {
			if !allowedTechKeys[k] {
				r.Warnf("Unrecognised key `%s` in technology `%s`; it will be ignored", k, tech)
			}
		}
		checkCarriers(&r, "tech", tech, def.Doc("essentials"))
	}
	for _, group := range groups.Keys() {
		checkCarriers(&r, "tech_group", group, groups.Doc(group+".essentials"))
	}
	return r
}

func checkCarriers(r *Report, kind, name string, ess *nested.Document) {
	var badTiers []string
	for _, k := range ess.Keys() {
		if !strings.HasPrefix(k, "carrier") {
			continue
		}
		if !contains(CarrierTiers, k) {
			badTiers = append(badTiers, k)
			continue
		}
		for _, c := range carrierNames(ess.GetOr(k, nil)) {
			if c == "resource" {
				r.Errorf("The carrier name `resource` is reserved and cannot be used by %s `%s`", kind, name)
			}
		}
	}
	if len(badTiers) > 0 {
		sort.Strings(badTiers)
		r.Errorf("Invalid carrier tier found for %s `%s`: %s. Only %s are valid.",
			kind, name, strings.Join(badTiers, ", "), strings.Join(CarrierTiers, ", "))
	}
}

func carrierNames(v any) []string {
	switch c := v.(type) {
	case string:
		return []string{c}
	case []any:
		out := make([]string, 0, len(c))
		for _, item := range c {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
