package overrides

import (
	"errors"
	"path/filepath"

	"github.com/daryltucker/modelrun/internal/assets"
	"github.com/daryltucker/modelrun/internal/checks"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/output"
	"github.com/daryltucker/modelrun/internal/provenance"
)

// Options selects the overrides to layer over a model configuration.
type Options struct {
	// Scenario is a declared scenario name or a comma-separated list of
	// override (or scenario) names. Empty applies no scenario.
	Scenario string
	// Dict is applied before and again after the scenario overrides so it
	// always has the last word.
	Dict *nested.Document
}

// Result is the fully layered configuration.
type Result struct {
	Config           *nested.Document
	Debug            *provenance.Tracker
	AppliedOverrides []string
	Scenario         string
	Warnings         []string
}

// placeholders are defaults entries that only exist to describe the shape
// of techs, nodes and links; they are dropped once all layers are in.
var placeholders = []string{
	"techs.default_tech",
	"nodes.default_node",
	"links.default_node_from,default_node_to",
}

// Apply layers, from lowest to highest precedence: built-in defaults, config,
// opts.Dict, the scenario overrides, and opts.Dict again.
// config is not modified.
func Apply(config *nested.Document, opts Options) (*Result, error) {
	model, err := assets.Defaults()
	if err != nil {
		return nil, err
	}
	config = config.Copy()
	res := &Result{Debug: provenance.New(), Scenario: opts.Scenario}

	if p, ok := config.GetOr("model.timeseries_data_path", nil).(string); ok {
		if base, ok := config.GetOr("config_path", nil).(string); ok && base != "" && !filepath.IsAbs(p) {
			if err := config.Set("model.timeseries_data_path", filepath.Join(filepath.Dir(base), p)); err != nil {
				return nil, err
			}
		}
	}

	if err := model.Union(config, nested.UnionOptions{AllowOverride: true}); err != nil {
		return nil, err
	}

	layer := nested.UnionOptions{AllowOverride: true, AllowReplacement: true}

	if opts.Dict != nil {
		r := checks.Overrides(model, opts.Dict)
		res.Warnings = append(res.Warnings, r.Warnings...)
		if err := model.Union(opts.Dict, layer); err != nil {
			return nil, err
		}
	}

	if opts.Scenario != "" {
		names, warnings, err := ScenarioOverrides(model, opts.Scenario)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			return nil, err
		}
		output.Logger.Info("Applying overrides from scenario", "scenario", opts.Scenario, "overrides", names)

		combined, err := Combine(model, names)
		if err != nil {
			return nil, err
		}
		r := checks.Overrides(model, combined)
		res.Warnings = append(res.Warnings, r.Warnings...)
		if err := model.Union(combined, layer); err != nil {
			return nil, err
		}
		res.Debug.RecordAll(combined.FlatKeys(), provenance.AppliedFromOverride)
		res.AppliedOverrides = names
	}

	if opts.Dict != nil {
		if err := model.Union(opts.Dict, layer); err != nil {
			return nil, err
		}
		res.Debug.RecordAll(opts.Dict.FlatKeys(), provenance.OverriddenViaDictionary)
	}

	for _, k := range placeholders {
		if err := model.Delete(k); err != nil && !errors.Is(err, nested.ErrKeyNotFound) {
			return nil, err
		}
	}

	res.Config = model
	return res, nil
}
