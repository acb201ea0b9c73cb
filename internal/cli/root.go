/*
PURPOSE:
  Defines the root Cobra command for the modelrun CLI.
  Handles global flags, settings loading and logger setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Logging must be configured before any subcommand runs, so settings are
    loaded in PersistentPreRunE rather than in each subcommand.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/modelrun/main.go
  - Calls: Child commands (resolve, list-scenarios, defaults)
  - Modifies: settings (package state, read by subcommands).

ERROR HANDLING:
  - Returns error to main.go for exit code handling.
  - Usage is not printed for errors coming out of a model build.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Flags win over the settings file and environment when set explicitly.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init() and apply them in
    loadSettings().

RELATED FILES:
  - cmd/modelrun/main.go
  - internal/config/config.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/modelrun/internal/config"
	"github.com/daryltucker/modelrun/internal/output"
)

var (
	// cfgFile stores the path to the settings file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	// settings is loaded before any subcommand runs.
	settings *config.Config

	rootCmd = &cobra.Command{
		Use:   "modelrun",
		Short: "Resolve energy system model configurations into a model run",
		Long: `Reads a model configuration, applies overrides and scenarios, resolves
technology inheritance and node/link settings, loads time series and checks
the result. The resolved model run is written to the output directory.
Use 'resolve --help' for the options.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadSettings,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if err := output.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return err
	}
	settings = cfg
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is ./modelrun.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}
