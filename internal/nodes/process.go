/*
PURPOSE:
  Builds the per-node and per-link technology configuration of a model run.

REQUIREMENTS:
  User-specified:
  - Node keys are limited to techs, coordinates, available_area and exists.
  - A node entry named "a,b" applies to both nodes a and b.
  - Every technology at a node gets constraints/costs/switches merged from its
    root group down to the node entry.
  - Links ("a,b") may only connect existing nodes and carry transmission techs.

  Implementation-discovered:
  - A link and its reverse ("b,a") are the same connection, so a transmission
    tech may appear on only one of them.

ARCHITECTURE INTEGRATION:
  - Called by: internal/preprocess after technology inheritance.
  - Uses: internal/techs (Merged, Sections), internal/checks (Report).

ERROR HANDLING:
  - Every finding goes into Result.Report; processing continues past bad nodes.

RELATED FILES:
  - internal/checks/post.go (validates what this builds)
*/

package nodes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/checks"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/provenance"
	"github.com/daryltucker/modelrun/internal/techs"
)

var allowedNodeKeys = map[string]bool{
	"techs":          true,
	"coordinates":    true,
	"available_area": true,
	"exists":         true,
}

// Result is the node and link part of a model run.
type Result struct {
	Nodes  *nested.Document
	Links  *nested.Document
	Debug  *provenance.Tracker
	Report checks.Report
}

// Process expands config's nodes and links against the processed techs.
func Process(config, processed *nested.Document) (*Result, error) {
	res := &Result{Nodes: nested.New(), Links: nested.New(), Debug: provenance.New()}

	defs, err := expandNames(config.Doc("nodes"))
	if err != nil {
		return nil, err
	}
	techDefs := config.Doc("techs")

	for _, name := range defs.Keys() {
		raw, _ := defs.Child(name)
		def, _ := raw.(*nested.Document)
		if def == nil {
			def = nested.New()
		}
		if !def.Bool("exists", true) {
			continue
		}

		var unknown []string
		for _, k := range def.Keys() {
			if !allowedNodeKeys[k] {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			res.Report.Errorf("Node `%s` contains unrecognised keys %s. These could be mispositioned technologies, which must be listed under `techs`.",
				name, quoteList(unknown))
		}

		node := nested.New()
		for _, k := range []string{"coordinates", "available_area"} {
			if v, ok := def.Child(k); ok && v != nil {
				_ = node.Replace(k, nested.CopyValue(v))
			}
		}

		nodeTechs := nested.New()
		entries := def.Doc("techs")
		for _, tech := range entries.Keys() {
			rawEntry, _ := entries.Child(tech)
			entry, _ := rawEntry.(*nested.Document)
			if entry != nil && !entry.Bool("exists", true) {
				continue
			}
			if _, defined := techDefs.Child(tech); !defined {
				res.Report.Errorf("Technology `%s` at node `%s` is not defined", tech, name)
				continue
			}
			if !processed.Has(tech) {
				continue
			}
			chain := chainOf(processed, tech)
			if len(chain) > 0 && chain[len(chain)-1] == "transmission" {
				res.Report.Errorf("Transmission technology `%s` cannot be placed at node `%s`; define it on a link", tech, name)
				continue
			}

			prefix := "nodes." + name + ".techs." + tech
			settings, err := techs.Merged(config, tech, chain, res.Debug, prefix)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				if err := techs.MergeNodeLevel(settings, entry, res.Debug, prefix, name); err != nil {
					return nil, err
				}
			}
			_ = nodeTechs.Replace(tech, settings)
		}
		_ = node.Replace("techs", nodeTechs)
		_ = res.Nodes.Replace(name, node)
	}

	if err := processLinks(config, processed, res); err != nil {
		return nil, err
	}
	return res, nil
}

func processLinks(config, processed *nested.Document, res *Result) error {
	links := config.Doc("links")
	seen := make(map[string]string)

	for _, link := range links.Keys() {
		raw, _ := links.Child(link)
		def, _ := raw.(*nested.Document)
		if def == nil {
			def = nested.New()
		}
		if !def.Bool("exists", true) {
			continue
		}
		ends := strings.Split(link, ",")
		if len(ends) != 2 {
			res.Report.Errorf("Link `%s` must name exactly two nodes separated by a comma", link)
			continue
		}
		a, b := strings.TrimSpace(ends[0]), strings.TrimSpace(ends[1])
		if !res.Nodes.Has(a) || !res.Nodes.Has(b) {
			res.Report.Warnf("Not building the link %s,%s because one or both of its nodes do not exist in the model", a, b)
			continue
		}

		linkTechs := nested.New()
		entries := def.Doc("techs")
		for _, tech := range entries.Keys() {
			rawEntry, _ := entries.Child(tech)
			entry, _ := rawEntry.(*nested.Document)
			if entry != nil && !entry.Bool("exists", true) {
				continue
			}
			if !processed.Has(tech) {
				if _, defined := config.Doc("techs").Child(tech); !defined {
					res.Report.Errorf("Technology `%s` on link `%s` is not defined", tech, link)
				}
				continue
			}
			chain := chainOf(processed, tech)
			if len(chain) == 0 || chain[len(chain)-1] != "transmission" {
				res.Report.Errorf("Technology `%s` on link `%s` is not a transmission technology", tech, link)
				continue
			}

			pair := []string{a, b}
			sort.Strings(pair)
			key := pair[0] + "," + pair[1] + ":" + tech
			if other, dup := seen[key]; dup && other != link {
				res.Report.Errorf("Technology %s defined twice on a link defined in both directions (e.g. `A,B` and `B,A`)", tech)
				continue
			}
			seen[key] = link

			prefix := "links." + link + ".techs." + tech
			settings, err := techs.Merged(config, tech, chain, res.Debug, prefix)
			if err != nil {
				return err
			}
			if entry != nil {
				if err := techs.MergeNodeLevel(settings, entry, res.Debug, prefix, link); err != nil {
					return err
				}
			}
			_ = linkTechs.Replace(tech, settings)
		}
		out := nested.New()
		_ = out.Replace("techs", linkTechs)
		_ = res.Links.Replace(a+","+b, out)
	}
	return nil
}

// expandNames splits "a,b" node entries into one entry per node. Later
// entries override earlier ones for the same node.
func expandNames(defs *nested.Document) (*nested.Document, error) {
	out := nested.New()
	for _, key := range defs.Keys() {
		raw, _ := defs.Child(key)
		for _, name := range strings.Split(key, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			incoming := nested.New()
			if err := incoming.Replace(name, nested.CopyValue(raw)); err != nil {
				return nil, fmt.Errorf("invalid node name %q: %w", name, err)
			}
			if err := out.Union(incoming, nested.UnionOptions{AllowOverride: true}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func chainOf(processed *nested.Document, tech string) []string {
	raw, _ := processed.GetOr(tech+".inheritance", nil).([]any)
	out := make([]string, 0, len(raw))
	for _, g := range raw {
		if s, ok := g.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func quoteList(items []string) string {
	q := make([]string, len(items))
	for i, s := range items {
		q[i] = "'" + s + "'"
	}
	return "[" + strings.Join(q, ", ") + "]"
}
