package techs

import (
	"strings"

	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/provenance"
)

// Sections are the per-location attribute groups of a technology.
var Sections = []string{"constraints", "costs", "switches"}

// Merged layers constraints, costs and switches of tech from the root group
// in chain down to the tech definition. Systemwide constraints stay on the
// tech itself and are left out. When debug is non-nil every merged key is
// labelled under prefix.
func Merged(config *nested.Document, tech string, chain []string, debug *provenance.Tracker, prefix string) (*nested.Document, error) {
	out := nested.New()
	groupDefs := config.Doc("tech_groups")
	for i := len(chain) - 1; i >= 0; i-- {
		if err := mergeSections(out, groupDefs.Doc(chain[i]), debug, prefix, provenance.FromParent(chain[i])); err != nil {
			return nil, err
		}
	}
	techDef, _ := config.Doc("techs").Child(tech)
	def, _ := techDef.(*nested.Document)
	if err := mergeSections(out, def, debug, prefix, "From technology definition"); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeNodeLevel layers a node-specific technology entry over settings.
func MergeNodeLevel(settings, nodeEntry *nested.Document, debug *provenance.Tracker, prefix, node string) error {
	return mergeSections(settings, nodeEntry, debug, prefix, "Set at node `"+node+"`")
}

func mergeSections(out, def *nested.Document, debug *provenance.Tracker, prefix, label string) error {
	if def == nil {
		return nil
	}
	for _, section := range Sections {
		sub := def.Doc(section)
		if sub == nil {
			continue
		}
		layer := nested.New()
		for _, k := range sub.Keys() {
			if section == "constraints" && strings.HasSuffix(k, "_systemwide") {
				continue
			}
			v, _ := sub.Child(k)
			if err := layer.Replace(k, nested.CopyValue(v)); err != nil {
				return err
			}
		}
		wrapped := nested.New()
		if err := wrapped.Replace(section, layer); err != nil {
			return err
		}
		if err := out.Union(wrapped, nested.UnionOptions{AllowOverride: true}); err != nil {
			return err
		}
		if debug != nil {
			for _, k := range layer.FlatKeys() {
				debug.Record(prefix+"."+section+"."+k, label)
			}
		}
	}
	return nil
}
