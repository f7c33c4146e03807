package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
)

var pushCmd = &cobra.Command{
	Use:   "push <src> <dst-dir>",
	Short: "Copy a local file or directory to the channel's endpoint",
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

var pullCmd = &cobra.Command{
	Use:   "pull <src> <dst-dir>",
	Short: "Copy a file or directory from the channel's endpoint",
	Long: `Copies src from the endpoint into the local dst-dir. Existing local files
are never overwritten; a collision fails with exit code 6.`,
	Args: cobra.ExactArgs(2),
	RunE: runPull,
}

var (
	pushRecursive bool
	pullRecursive bool
)

func init() {
	pushCmd.Flags().BoolVarP(&pushRecursive, "recursive", "r", false, "Copy a directory tree")
	pullCmd.Flags().BoolVarP(&pullRecursive, "recursive", "r", false, "Copy a directory tree")
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
}

type transferFunc func(ctx context.Context, ch channel.Channel, src, dst string) (string, error)

func pushFile(ctx context.Context, ch channel.Channel, src, dst string) (string, error) {
	return ch.PushFile(ctx, src, dst)
}

func pullFile(ctx context.Context, ch channel.Channel, src, dst string) (string, error) {
	return ch.PullFile(ctx, src, dst)
}

func pushDirectory(ctx context.Context, ch channel.Channel, src, dst string) (string, error) {
	dt, err := directoryTransferer(ch)
	if err != nil {
		return "", err
	}
	return dt.PushDirectory(ctx, src, dst)
}

func pullDirectory(ctx context.Context, ch channel.Channel, src, dst string) (string, error) {
	dt, err := directoryTransferer(ch)
	if err != nil {
		return "", err
	}
	return dt.PullDirectory(ctx, src, dst)
}

func directoryTransferer(ch channel.Channel) (channel.DirectoryTransferer, error) {
	dt, ok := ch.(channel.DirectoryTransferer)
	if !ok {
		return nil, errors.ValidationError(fmt.Sprintf("channel %s cannot transfer directories", ch.Host()))
	}
	return dt, nil
}

func runPush(cmd *cobra.Command, args []string) error {
	transfer := transferFunc(pushFile)
	if pushRecursive {
		transfer = pushDirectory
	}
	return runTransfer(cmd, "pushed", transfer, args[0], args[1])
}

func runPull(cmd *cobra.Command, args []string) error {
	transfer := transferFunc(pullFile)
	if pullRecursive {
		transfer = pullDirectory
	}
	return runTransfer(cmd, "pulled", transfer, args[0], args[1])
}

func runTransfer(cmd *cobra.Command, verb string, transfer transferFunc, src, dst string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	path, err := transfer(cmd.Context(), a.Channel, src, dst)
	if err != nil {
		return err
	}
	logging.Debug(verb+" "+src, "host", a.Channel.Host(), "path", path)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
