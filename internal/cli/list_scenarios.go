/*
PURPOSE:
  Defines the 'list-scenarios' subcommand.
  Shows what a model declares for --scenario before resolving it.

REQUIREMENTS:
  User-specified:
  - List available overrides and scenarios.

  Implementation-discovered:
  - Useful validation step before a full resolve: a scenario that does not
    expand is shown with its error.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Scenarios()

ERROR HANDLING:
  - Returns error only if the model file cannot be loaded.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  modelrun list-scenarios model.yaml

RELATED FILES:
  - internal/engine/scenarios.go
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daryltucker/modelrun/internal/engine"
)

var listScenariosCmd = &cobra.Command{
	Use:   "list-scenarios <model.yaml>",
	Short: "List the overrides and scenarios a model declares",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := engine.Scenarios(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Overrides:")
		for _, name := range c.Overrides {
			fmt.Fprintf(out, "- %s\n", name)
		}
		fmt.Fprintln(out, "Scenarios:")
		for _, s := range c.Scenarios {
			if s.Err != nil {
				fmt.Fprintf(out, "- %s: invalid (%v)\n", s.Name, s.Err)
				continue
			}
			fmt.Fprintf(out, "- %s: %s\n", s.Name, strings.Join(s.Overrides, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listScenariosCmd)
}
