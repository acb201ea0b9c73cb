package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/modelrun/internal/assets"
	"github.com/daryltucker/modelrun/internal/output"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Inspect the built-in configuration defaults",
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the built-in defaults (base tech groups, run and model settings) as YAML",
	Long: `Writes the defaults every model is layered over. Without a path the
defaults go to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			_, err := cmd.OutOrStdout().Write(assets.DefaultsYAML)
			return err
		}

		target := args[0]
		if err := os.WriteFile(target, assets.DefaultsYAML, 0644); err != nil {
			return fmt.Errorf("failed to write defaults to %s: %w", target, err)
		}
		output.Logger.Info("Exported defaults", "path", target, "version", assets.Version)
		return nil
	},
}

func init() {
	defaultsCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(defaultsCmd)
}
