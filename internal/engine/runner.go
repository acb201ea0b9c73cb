/*
PURPOSE:
  High-level runner that orchestrates one model resolution from the CLI.
  Loads the model, builds the model run and writes every requested artefact.

REQUIREMENTS:
  User-specified:
  - Resolve a model file with an optional scenario and override dictionary.
  - Write model_run.yaml, and optionally JSON, debug, provenance and time
    series outputs.

  Implementation-discovered:
  - Caller-supplied tables for `df=` references come from CSV files named on
    the command line, loaded here so the CLI stays thin.
  - A failed build writes nothing, so a stale model_run.yaml from a previous
    successful run is never mistaken for the current one's.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/preprocess, internal/output, internal/config

ERROR HANDLING:
  - Build errors are returned unchanged (callers can errors.As them).
  - Output errors are wrapped with the file that failed.

IMPLEMENTATION RULES:
  - Build fully, then write.

USAGE:
  res, err := engine.Run(cfg, engine.Request{ModelPath: "model.yaml", Scenario: "winter"})

RELATED FILES:
  - internal/engine/scenarios.go
  - internal/preprocess/preprocess.go

MAINTENANCE:
  - Update the artefact list when adding outputs.
*/

package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daryltucker/modelrun/internal/config"
	"github.com/daryltucker/modelrun/internal/model"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/output"
	"github.com/daryltucker/modelrun/internal/preprocess"
	"github.com/daryltucker/modelrun/internal/timeseries"
)

// Output file names inside the output directory.
const (
	ModelRunFile   = "model_run.yaml"
	ModelRunJSON   = "model_run.json"
	DebugFile      = "debug.yaml"
	ProvenanceFile = "provenance.csv"
	TimeseriesFile = "timeseries.csv"
)

// Request describes one resolution.
type Request struct {
	ModelPath    string
	Scenario     string
	OverrideDict *nested.Document
	// TableFiles maps `df=` keys to CSV files.
	TableFiles map[string]string
}

// Result lists what a run produced.
type Result struct {
	Run   *preprocess.ModelRun
	Files []string
}

// Run builds the model run described by req and writes its artefacts to
// cfg.OutputDir.
func Run(cfg *config.Config, req Request) (*Result, error) {
	tables, err := loadTables(req.TableFiles)
	if err != nil {
		return nil, err
	}

	output.Logger.Info("Resolving model", "path", req.ModelPath, "scenario", req.Scenario)
	run, err := preprocess.FromFile(req.ModelPath, preprocess.Options{
		Scenario:     req.Scenario,
		OverrideDict: req.OverrideDict,
		Tables:       tables,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}
	res := &Result{Run: run}
	write := func(name string, fn func(path string) error) error {
		path := filepath.Join(cfg.OutputDir, name)
		if err := fn(path); err != nil {
			return err
		}
		res.Files = append(res.Files, path)
		output.Logger.Info("Wrote output", "path", path)
		return nil
	}

	if err := write(ModelRunFile, func(p string) error { return output.WriteYAML(p, run.Document) }); err != nil {
		return nil, err
	}
	if cfg.WriteJSON {
		if err := write(ModelRunJSON, func(p string) error { return output.WriteJSON(p, run.Document) }); err != nil {
			return nil, err
		}
	}
	if cfg.WriteDebug {
		if err := write(DebugFile, func(p string) error { return output.WriteYAML(p, run.Debug) }); err != nil {
			return nil, err
		}
	}
	if cfg.WriteProvenanceCSV {
		if err := write(ProvenanceFile, func(p string) error { return writeProvenance(p, run.Debug.Doc("comments")) }); err != nil {
			return nil, err
		}
	}
	if cfg.WriteTimeseriesCSV && run.Timeseries != nil && len(run.Timeseries.Index) > 0 {
		header, rows := run.Timeseries.Records()
		if err := write(TimeseriesFile, func(p string) error { return output.WriteTableCSV(p, header, rows) }); err != nil {
			return nil, err
		}
	}

	output.Logger.Info("Model run complete", "files", len(res.Files), "warnings", len(run.Warnings))
	return res, nil
}

func loadTables(files map[string]string) (map[string]model.Table, error) {
	if len(files) == 0 {
		return nil, nil
	}
	tables := make(map[string]model.Table, len(files))
	for key, path := range files {
		t, err := timeseries.ReadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load timeseries table %s: %w", key, err)
		}
		tables[key] = t
	}
	return tables, nil
}

func writeProvenance(path string, comments *nested.Document) error {
	w, err := output.NewCSVWriter(path)
	if err != nil {
		return fmt.Errorf("failed to init CSV writer at %s: %w", path, err)
	}
	defer w.Close()

	for _, e := range comments.Flatten() {
		label, _ := e.Value.(string)
		if err := w.Write(model.ProvenanceRecord{Key: e.Key, Label: label}); err != nil {
			return fmt.Errorf("failed to write provenance to %s: %w", path, err)
		}
	}
	return w.Close()
}
