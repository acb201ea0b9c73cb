/*
PURPOSE:
  Second checkpoint. Runs once technologies are resolved and every node and
  link has its merged technology settings.

REQUIREMENTS:
  User-specified:
  - Constraints, costs and switches at each location must be allowed for the
    technology's root group; required constraints must be present.
  - Node coordinates are all-or-nothing and use a single coordinate system.

  Implementation-discovered:
  - A cost class that is null or empty carries nothing and is removed from the
    model run (with a warning) instead of failing later.
  - The MILP warning is emitted once per model, not once per technology.
  - Clustered time series without inter-cluster storage cannot keep storage
    cyclic, so run.cyclic_storage is switched off with a warning.

ARCHITECTURE INTEGRATION:
  - Called by: internal/preprocess.Build after internal/nodes.Process.
  - Mutates: nodes.*.techs.*.costs (empty classes), run.cyclic_storage.

ERROR HANDLING:
  - Collects every finding; never stops at the first.

RELATED FILES:
  - internal/nodes/process.go
  - internal/assets/defaults.yaml (allowed_* and required_constraints lists)
*/

package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/nested"
)

const milpWarning = "Integer and / or binary decision variables are included in this model. " +
	"This may adversely affect solution time, particularly if you are using a non-commercial solver. " +
	"To improve solution time, consider changing MILP related solver options (e.g. `mipgap`) " +
	"or removing integer / binary variables."

// PostInheritance checks the assembled techs, nodes and links of run.
func PostInheritance(run *nested.Document) Report {
	var r Report
	techDefs := run.Doc("techs")
	milp := false

	visit := func(where string, located *nested.Document) {
		for _, tech := range located.Keys() {
			settings := located.Doc(tech)
			if settings == nil {
				continue
			}
			if checkLocatedTech(&r, tech, where, settings, techDefs.Doc(tech)) {
				milp = true
			}
		}
	}
	nodes := run.Doc("nodes")
	for _, n := range nodes.Keys() {
		visit(n, nodes.Doc(n).Doc("techs"))
	}
	links := run.Doc("links")
	for _, l := range links.Keys() {
		raw, _ := links.Child(l)
		link, _ := raw.(*nested.Document)
		visit(l, link.Doc("techs"))
	}

	if milp {
		r.Warnf("%s", milpWarning)
	}
	checkCoordinates(&r, nodes)
	checkCyclicStorage(&r, run)
	return r
}

// checkLocatedTech validates one technology at one node or link and reports
// whether it introduces integer or binary variables.
func checkLocatedTech(r *Report, tech, where string, settings, def *nested.Document) bool {
	allowedConstraints := stringList(def.GetOr("allowed_constraints", nil))
	allowedCosts := stringList(def.GetOr("allowed_costs", nil))
	allowedSwitches := stringList(def.GetOr("allowed_switches", nil))
	ess := def.Doc("essentials")
	constraints := settings.Doc("constraints")
	milp := false

	for _, k := range constraints.Keys() {
		if !contains(allowedConstraints, k) {
			r.Errorf("`%s` at `%s` defines `%s` as constraint, which is not allowed for this technology", tech, where, k)
		}
		if strings.HasPrefix(k, "units_") {
			milp = true
			if !constraints.Has("energy_cap_per_unit") {
				r.Errorf("`%s` at `%s` fails to define energy_cap_per_unit when specifying technology in units_max/min/equals", tech, where)
			}
		}
	}
	required, _ := def.GetOr("required_constraints", nil).([]any)
	for _, req := range required {
		options := stringList(req)
		if s, ok := req.(string); ok {
			options = []string{s}
		}
		found := false
		for _, o := range options {
			if constraints.Has(o) {
				found = true
				break
			}
		}
		if !found && len(options) > 0 {
			r.Errorf("`%s` at `%s` fails to define all required constraints; missing one of %s", tech, where, formatList(options))
		}
	}

	if v, ok := constraints.Child("export_carrier"); ok && v != nil {
		outs := carrierSet(ess, "carrier_out")
		if s, _ := v.(string); !contains(outs, s) {
			r.Errorf("Export carrier `%v` for `%s` at `%s` is not one of its output carriers %s", v, tech, where, formatList(outs))
		}
	}
	if v, err := constraints.Get("storage_initial"); err == nil {
		if f, ok := nested.AsFloat(v); ok && (f < 0 || f > 1) {
			r.Errorf("storage_initial for `%s` at `%s` is a fraction of storage capacity and must be between 0 and 1, not %v", tech, where, v)
		}
	}
	if ratios := constraints.Doc("carrier_ratios"); ratios != nil {
		for _, tier := range ratios.Keys() {
			configured := carrierNames(ess.GetOr(tier, nil))
			for _, c := range ratios.Doc(tier).Keys() {
				if !contains(configured, c) {
					r.Warnf("Tech `%s` gets a carrier_ratio for carrier `%s` in tier `%s` at `%s`, but that carrier is not configured for this tier; the ratio is ignored", tech, c, tier, where)
				}
			}
		}
	}

	if costs := settings.Doc("costs"); costs != nil {
		for _, class := range costs.Keys() {
			raw, _ := costs.Child(class)
			classCosts, _ := raw.(*nested.Document)
			if classCosts.Len() == 0 {
				_ = costs.Delete(class)
				r.Warnf("Deleting empty cost class `%s` for technology `%s` at `%s`.", class, tech, where)
				continue
			}
			if contains(allowedCosts, class) {
				r.Warnf("`%s` at `%s` defines a cost class named `%s`, which is also a cost type; costs must be nested under a cost class such as `monetary`", tech, where, class)
			}
			for _, k := range classCosts.Keys() {
				if !contains(allowedCosts, k) {
					r.Errorf("`%s` at `%s` defines `%s` as cost in class `%s`, which is not allowed for this technology", tech, where, k, class)
				}
				if k == "purchase" {
					milp = true
				}
			}
		}
		if costs.Len() == 0 {
			_ = settings.Delete("costs")
		}
	}

	for _, k := range settings.Doc("switches").Keys() {
		if !contains(allowedSwitches, k) {
			r.Errorf("`%s` at `%s` defines `%s` as switch, which is not allowed for this technology", tech, where, k)
		}
	}
	return milp
}

func checkCoordinates(r *Report, nodes *nested.Document) {
	systems := make(map[string][]string)
	with := 0
	for _, n := range nodes.Keys() {
		raw, ok := nodes.Doc(n).Child("coordinates")
		if !ok || raw == nil {
			continue
		}
		with++
		coords, isDoc := raw.(*nested.Document)
		if !isDoc || coords.Len() != 2 {
			r.Errorf("Coordinates must be given in the format {lat: N, lon: M} or {x: N, y: M}; check node `%s`", n)
			continue
		}
		keys := coords.Keys()
		sort.Strings(keys)
		system := strings.Join(keys, ",")
		if system != "lat,lon" && system != "x,y" {
			r.Errorf("Unidentified coordinate system at node `%s`. All nodes must either use the format {lat: N, lon: M} or {x: N, y: M}.", n)
			continue
		}
		systems[system] = append(systems[system], n)
	}
	if with > 0 && with < nodes.Len() {
		r.Errorf("Either all or no nodes must have `coordinates` defined")
	}
	if len(systems) > 1 {
		r.Errorf("All nodes must use the same coordinate format, either {lat: N, lon: M} or {x: N, y: M}")
	}
}

func checkCyclicStorage(r *Report, run *nested.Document) {
	if !run.Bool("run.cyclic_storage", false) {
		return
	}
	if run.String("model.time.function", "") != "apply_clustering" {
		return
	}
	if run.Bool("model.time.function_options.storage_inter_cluster", true) {
		return
	}
	_ = run.Set("run.cyclic_storage", false)
	r.Warnf("Cyclic storage is only possible with inter-cluster storage (model.time.function_options.storage_inter_cluster); setting run.cyclic_storage to false")
}

// carrierSet collects carrier names from every tier key starting with prefix.
func carrierSet(ess *nested.Document, prefix string) []string {
	var out []string
	for _, k := range ess.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, carrierNames(ess.GetOr(k, nil))...)
		}
	}
	sort.Strings(out)
	return out
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func formatList(items []string) string {
	return fmt.Sprintf("[%s]", strings.Join(items, ", "))
}
