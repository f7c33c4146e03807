package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/launcher"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

var wrapCmd = &cobra.Command{
	Use:   "wrap [flags] -- <command>",
	Short: "Print the script a launcher wraps a command in",
	RunE:  runWrap,
}

var (
	wrapLauncher      string
	wrapTasksPerNode  int
	wrapNodesPerBlock int
	wrapWalltime      string
	wrapOverrides     string
)

func init() {
	wrapCmd.Flags().StringVarP(&wrapLauncher, "launcher", "l", "single-node", "Launcher name (see forage-blocks launchers)")
	wrapCmd.Flags().IntVar(&wrapTasksPerNode, "tasks-per-node", 1, "Tasks per node")
	wrapCmd.Flags().IntVar(&wrapNodesPerBlock, "nodes-per-block", 1, "Nodes per block")
	wrapCmd.Flags().StringVar(&wrapWalltime, "walltime", "00:10:00", "Walltime as HH:MM:SS")
	wrapCmd.Flags().StringVar(&wrapOverrides, "overrides", "", "Extra aprun arguments")
	rootCmd.AddCommand(wrapCmd)
}

func runWrap(cmd *cobra.Command, args []string) error {
	words, err := commandAfterDash(cmd, args)
	if err != nil {
		return err
	}
	if wrapTasksPerNode < 1 || wrapNodesPerBlock < 1 {
		return fmt.Errorf("--tasks-per-node and --nodes-per-block must be at least 1")
	}
	walltime, err := provider.ParseWalltime(wrapWalltime)
	if err != nil {
		return err
	}
	l, err := launcher.New(wrapLauncher, wrapOverrides)
	if err != nil {
		return err
	}

	// Words are joined with spaces; the launcher stages the command verbatim.
	command := strings.Join(words, " ")

	fmt.Fprint(cmd.OutOrStdout(), l.Wrap(command, wrapTasksPerNode, wrapNodesPerBlock, walltime))
	return nil
}
