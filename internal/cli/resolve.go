/*
PURPOSE:
  Defines the 'resolve' subcommand.
  Builds the model run for one model file and writes it out.

REQUIREMENTS:
  User-specified:
  - Resolve a model with an optional scenario.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load settings first (done by root).
  - An override dictionary can come from a file, from --set pairs, or both;
    --set pairs are layered over the file.
  - `df=` references need tables, named on the command line as key=path.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config (via root), internal/nested

ERROR HANDLING:
  - Returns error if flag parsing, the model build or writing fails.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Settings -> Flag overrides -> Engine.Run.

USAGE:
  modelrun resolve model.yaml --scenario winter -o ./out

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daryltucker/modelrun/internal/engine"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/output"
)

var (
	scenarioFlag     string
	overrideFile     string
	setPairs         []string
	timeseriesTables []string
	outputOverride   string
	writeJSON        bool
	writeProvenance  bool
	writeTimeseries  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <model.yaml>",
	Short: "Resolve a model configuration into a model run",
	Long: `Resolves a model configuration file into a model run.
The process follows a fixed order:
1. Overrides: the scenario and the override dictionary are applied.
2. Techs: every technology inherits from its parent groups.
3. Nodes and links: per-location settings are resolved over the tech definitions.
4. Time series: file= and df= references are loaded and joined.
5. Checks: the resolved model run is checked and derived costs are computed.

model_run.yaml is always written. debug.yaml records where every value came from.`,
	Example: `  # Resolve with defaults
  modelrun resolve model.yaml

  # Apply a scenario and write to a specific directory
  modelrun resolve model.yaml --scenario winter_peak -o ./runs/winter

  # Apply overrides by name, plus single values
  modelrun resolve model.yaml --scenario cheap_gas,no_nuclear --set run.solver=glpk

  # Serve df=demand references from a CSV file
  modelrun resolve model.yaml --timeseries demand=./data/demand.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := settings
		if outputOverride != "" {
			cfg.OutputDir = outputOverride
		}
		flags := cmd.Flags()
		if flags.Changed("json") {
			cfg.WriteJSON = writeJSON
		}
		if flags.Changed("provenance-csv") {
			cfg.WriteProvenanceCSV = writeProvenance
		}
		if flags.Changed("timeseries-csv") {
			cfg.WriteTimeseriesCSV = writeTimeseries
		}

		dict, err := overrideDict(overrideFile, setPairs)
		if err != nil {
			return err
		}
		tables, err := parsePairs("--timeseries", timeseriesTables)
		if err != nil {
			return err
		}

		res, err := engine.Run(cfg, engine.Request{
			ModelPath:    args[0],
			Scenario:     scenarioFlag,
			OverrideDict: dict,
			TableFiles:   tables,
		})
		if err != nil {
			return err
		}
		for _, f := range res.Files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

// overrideDict reads the override file, if any, and layers --set pairs over it.
func overrideDict(path string, pairs []string) (*nested.Document, error) {
	if path == "" && len(pairs) == 0 {
		return nil, nil
	}
	dict := nested.New()
	if path != "" {
		d, err := nested.LoadFile(path, nested.NoImports)
		if err != nil {
			return nil, fmt.Errorf("failed to load override file: %w", err)
		}
		dict = d
	}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		v, err := parseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		if err := dict.Replace(key, v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		output.Logger.Debug("Override from flag", "key", key, "value", v)
	}
	return dict, nil
}

// parseValue reads raw as a YAML scalar or flow collection, so `--set
// run.solver=glpk` gives a string and `--set x=[1, 2]` a list.
func parseValue(raw string) (any, error) {
	d, err := nested.Load([]byte("value: "+raw), "--set", nested.NoImports)
	if err != nil {
		return nil, err
	}
	return d.GetOr("value", nil), nil
}

func parsePairs(flag string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid %s %q, expected name=path", flag, pair)
		}
		out[key] = value
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&scenarioFlag, "scenario", "s", "", "Scenario name, or comma-separated list of override names")
	resolveCmd.Flags().StringVar(&overrideFile, "override-file", "", "YAML file applied over the model with the highest precedence")
	resolveCmd.Flags().StringArrayVar(&setPairs, "set", nil, "Override a single value, as dotted.key=value (repeatable)")
	resolveCmd.Flags().StringArrayVar(&timeseriesTables, "timeseries", nil, "CSV table serving df=NAME references, as NAME=path (repeatable)")
	resolveCmd.Flags().StringVarP(&outputOverride, "output-dir", "o", "", "Output directory for the model run")
	resolveCmd.Flags().BoolVar(&writeJSON, "json", false, "Also write model_run.json")
	resolveCmd.Flags().BoolVar(&writeProvenance, "provenance-csv", false, "Also write provenance.csv")
	resolveCmd.Flags().BoolVar(&writeTimeseries, "timeseries-csv", false, "Also write the joined time series to timeseries.csv")
}
