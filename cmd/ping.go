package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/health"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured channel can run commands",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

var pingTimeout time.Duration

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", health.DefaultTimeout, "Timeout for each probe")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := health.Check(cmd.Context(), a.Channel, pingTimeout)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Host: %s\n", result.Host)
	fmt.Fprintf(out, "Work dir: %s\n", a.Channel.WorkDir())
	fmt.Fprintf(out, "Script dir: %s\n", a.Channel.ScriptDir())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Health Checks:")
	fmt.Fprintf(out, "  Reachable: %s\n", boolStatus(result.Reachable))
	if result.Reachable {
		fmt.Fprintf(out, "  Latency: %s\n", result.Latency.Round(time.Millisecond))
		fmt.Fprintf(out, "  Script dir writable: %s\n", boolStatus(result.ScriptDirWritable))
		fmt.Fprintf(out, "  Uptime: %s\n", result.Uptime)
		if result.Kernel != "" {
			fmt.Fprintf(out, "  Kernel: %s\n", result.Kernel)
		}
	}
	fmt.Fprintf(out, "Status: %s\n", result.Status())

	if !result.Reachable {
		return errors.New(errors.ExitTransport, fmt.Sprintf("%s is unreachable", result.Host))
	}
	return nil
}
