/*
PURPOSE:
  Turns a model configuration into a model run: the fully resolved, validated
  document an optimisation model builder consumes, plus a debug document
  explaining where every resolved value came from.

REQUIREMENTS:
  User-specified:
  - Pipeline: load, merge over defaults, apply overrides and scenario,
    resolve technology inheritance, build nodes and links, load time series,
    validate.
  - Validation runs in checkpoints. Every warning is emitted; any error
    aborts the build before the next checkpoint runs.
  - Nothing is shared between builds except the read-only defaults.

  Implementation-discovered:
  - The debug document keeps override labels at their configuration paths
    and places technology, node and link labels under `model_run`, next to
    the values they describe.
  - Building from an in-memory document has no config_path, so relative
    imports and relative timeseries_data_path values are not resolved.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (CLI `resolve`), tests.
  - Calls: overrides.Apply, checks.Initial, techs.Process, techs.Groups,
    nodes.Process, checks.PostInheritance, timeseries.Process, checks.Final.

ERROR HANDLING:
  - Structural errors (parse, imports, scenario resolution) return
    immediately, wrapped with the step that failed.
  - Checkpoint findings return as *checks.ModelError.

USAGE:
  run, err := preprocess.FromFile("model.yaml", preprocess.Options{Scenario: "winter"})
  if err != nil { return err }
  out, _ := run.Document.Dump()

RELATED FILES:
  - internal/overrides/apply.go
  - internal/checks/report.go
*/

package preprocess

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/daryltucker/modelrun/internal/checks"
	"github.com/daryltucker/modelrun/internal/model"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/nodes"
	"github.com/daryltucker/modelrun/internal/output"
	"github.com/daryltucker/modelrun/internal/overrides"
	"github.com/daryltucker/modelrun/internal/provenance"
	"github.com/daryltucker/modelrun/internal/techs"
	"github.com/daryltucker/modelrun/internal/timeseries"
)

// Options controls a model build.
type Options struct {
	// Scenario is a scenario name or comma-separated override names.
	Scenario string
	// OverrideDict is layered over the configuration with the highest precedence.
	OverrideDict *nested.Document
	// Tables serve `df=` time series references.
	Tables map[string]model.Table
}

// ModelRun is the outcome of a successful build.
type ModelRun struct {
	Document   *nested.Document
	Debug      *nested.Document
	Timeseries *timeseries.Data
	Warnings   []string
}

// FromFile loads the model configuration at path, with its imports, and builds it.
func FromFile(path string, opts Options) (*ModelRun, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model path %s: %w", path, err)
	}
	config, err := nested.LoadFile(abs, nested.TopLevelImports)
	if err != nil {
		return nil, fmt.Errorf("failed to load model file %s: %w", path, err)
	}
	if err := config.Replace("config_path", abs); err != nil {
		return nil, err
	}
	return FromDocument(config, opts)
}

// FromDocument builds an already loaded configuration. config is not modified.
func FromDocument(config *nested.Document, opts Options) (*ModelRun, error) {
	applied, err := overrides.Apply(config, overrides.Options{Scenario: opts.Scenario, Dict: opts.OverrideDict})
	if err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}
	return Build(applied, opts.Tables)
}

// Build runs every checkpoint over a configuration that already has its
// overrides applied.
func Build(applied *overrides.Result, tables map[string]model.Table) (*ModelRun, error) {
	b := &builder{config: applied.Config, comments: provenance.New(), run: nested.New()}
	b.comments.Absorb(applied.Debug, "")
	if err := b.raise(checks.Report{Warnings: applied.Warnings}); err != nil {
		return nil, err
	}

	var scenario any
	if applied.Scenario != "" {
		scenario = applied.Scenario
	}
	b.set("scenario", scenario)
	b.set("applied_overrides", strings.Join(applied.AppliedOverrides, ";"))

	if err := b.raise(checks.Initial(b.config)); err != nil {
		return nil, err
	}

	processed, err := techs.Process(b.config)
	if err != nil {
		return nil, err
	}
	b.comments.Absorb(processed.Debug, "model_run.techs")
	if err := b.raise(checks.Report{Errors: processed.Errors}); err != nil {
		return nil, err
	}
	b.set("techs", processed.Techs)
	b.set("tech_groups", techs.Groups(b.config, processed.Techs))

	located, err := nodes.Process(b.config, processed.Techs)
	if err != nil {
		return nil, err
	}
	b.comments.Absorb(located.Debug, "model_run")
	if err := b.raise(located.Report); err != nil {
		return nil, err
	}
	b.set("nodes", located.Nodes)
	b.set("links", located.Links)
	b.set("run", b.config.Doc("run").Copy())
	b.set("model", b.config.Doc("model").Copy())

	if err := b.raise(checks.PostInheritance(b.run)); err != nil {
		return nil, err
	}

	series, report := timeseries.Process(b.config, located.Nodes, tables)
	if err := b.raise(report); err != nil {
		return nil, err
	}
	vars := make([]any, len(series.Vars))
	for i, v := range series.Vars {
		vars[i] = v
	}
	b.set("timeseries_vars", vars)

	finalDebug := provenance.New()
	finalReport := checks.Final(b.run, finalDebug)
	b.comments.Absorb(finalDebug, "model_run")
	if err := b.raise(finalReport); err != nil {
		return nil, err
	}

	debug := nested.New()
	if err := debug.Replace("comments", b.comments.Document()); err != nil {
		return nil, err
	}
	if err := debug.Replace("config_initial", b.config); err != nil {
		return nil, err
	}

	output.Logger.Info("Model run built", "scenario", applied.Scenario,
		"techs", processed.Techs.Len(), "nodes", located.Nodes.Len(), "warnings", len(b.warnings))
	return &ModelRun{
		Document:   b.run,
		Debug:      debug,
		Timeseries: series.Data,
		Warnings:   b.warnings,
	}, nil
}

type builder struct {
	config   *nested.Document
	run      *nested.Document
	comments *provenance.Tracker
	warnings []string
}

// set stores a top-level model run entry; top-level names never contain dots.
func (b *builder) set(key string, v any) {
	_ = b.run.Replace(key, v)
}

// raise emits the report's warnings, keeps them for the ModelRun and fails
// on the report's errors.
func (b *builder) raise(r checks.Report) error {
	b.warnings = append(b.warnings, r.Warnings...)
	return r.Raise()
}
