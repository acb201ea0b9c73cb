/*
PURPOSE:
  Defines the tool settings for modelrun and how they are loaded. These are
  settings of the command-line tool (where to write, how to log), not the
  model configuration, which is a nested.Document.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the output directory and which artefacts to write.
  - Allow configuration of log level and format.

  Implementation-discovered:
  - Settings come from defaults, then an optional YAML file, then
    MODELRUN_* environment variables, then CLI flags (applied by internal/cli).
  - A missing default settings file is not an error; a missing explicit one is.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: github.com/spf13/viper (file + env layering),
    github.com/go-playground/validator/v10 (value checks)

ERROR HANDLING:
  - Returns explicit error if the settings file is invalid or a value fails
    validation.

IMPLEMENTATION RULES:
  - Struct tags: mapstructure for viper, validate for validator.
  - Every field needs a viper default so environment overrides bind.

USAGE:
  cfg, err := config.Load("modelrun.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config, DefaultConfig() and setDefaults().

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new output artefacts.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MODELRUN_LOG_LEVEL.
const EnvPrefix = "MODELRUN"

// DefaultFiles are searched, in order, when no settings file is given.
var DefaultFiles = []string{"modelrun.yaml", ".modelrun.yaml"}

var validate = validator.New()

// Config represents the full tool configuration.
type Config struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=text json"`
	// WriteDebug writes debug.yaml (provenance comments and the initial config).
	WriteDebug bool `mapstructure:"write_debug"`
	// WriteJSON writes model_run.json next to model_run.yaml.
	WriteJSON          bool `mapstructure:"write_json"`
	WriteProvenanceCSV bool `mapstructure:"write_provenance_csv"`
	WriteTimeseriesCSV bool `mapstructure:"write_timeseries_csv"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:          ".",
		LogLevel:           "info",
		LogFormat:          "text",
		WriteDebug:         true,
		WriteJSON:          false,
		WriteProvenanceCSV: false,
		WriteTimeseriesCSV: false,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("write_debug", d.WriteDebug)
	v.SetDefault("write_json", d.WriteJSON)
	v.SetDefault("write_provenance_csv", d.WriteProvenanceCSV)
	v.SetDefault("write_timeseries_csv", d.WriteTimeseriesCSV)
}

// Load reads configuration from a file and the environment.
// If path is specified, it must exist.
// If path is empty, DefaultFiles are searched in the working directory and
// defaults are used when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
