package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/launcher"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

var launchersCmd = &cobra.Command{
	Use:   "launchers",
	Short: "List the available launchers and schedulers",
	Args:  cobra.NoArgs,
	RunE:  runLaunchers,
}

func init() {
	rootCmd.AddCommand(launchersCmd)
}

func runLaunchers(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Launchers:")
	for _, name := range launcher.Names() {
		fmt.Fprintf(out, "  %s\n", name)
	}

	fmt.Fprintln(out, "Providers:")
	fmt.Fprintln(out, "  local")
	for _, name := range provider.SchedulerNames() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
