package cmd

import (
	"fmt"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command>",
	Short: "Execute a command on the configured channel",
	Long: `Runs a command through the channel's shell, waits for it and prints its
output. The exit code is the command's own; 124 means it timed out or its
outcome could not be determined.`,
	RunE: runExec,
}

var (
	execTimeout time.Duration
	execEnv     []string
)

func init() {
	execCmd.Flags().DurationVar(&execTimeout, "timeout", time.Minute, "Kill the command after this long")
	execCmd.Flags().StringArrayVarP(&execEnv, "env", "e", nil, "Set an environment variable (KEY=VALUE, repeatable)")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	words, err := commandAfterDash(cmd, args)
	if err != nil {
		return err
	}
	env, err := parseEnv(execEnv)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	// A single word is passed through so shell syntax like "a | b" works.
	cmdStr := words[0]
	if len(words) > 1 {
		cmdStr = shellquote.Join(words...)
	}

	result := a.Channel.ExecuteSync(cmd.Context(), cmdStr, execTimeout, env)
	fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)

	if !result.Succeeded() {
		return errors.CommandExit(result.ExitCode)
	}
	return nil
}
