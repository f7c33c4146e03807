package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/monitor"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/tui"
)

// interactive is replaced in tests.
var interactive = terminal.Interactive

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command>",
	Short: "Submit blocks through the configured provider and wait for them",
	Long: `Submits --blocks copies of the command through the configured provider,
each wrapped by the configured launcher, then polls until every block has
finished. Interrupting with Ctrl-C cancels the blocks that are still pending
or running.

With --watch an interactive view shows the jobs instead: c cancels the
selected job, d detaches and q quits, cancelling whatever is still running.`,
	RunE: runRun,
}

var (
	runBlocks      int
	runBlockSize   int
	runJobName     string
	runWatch       bool
	runInterval    time.Duration
	runMetricsAddr string
	runKeepMin     bool
)

func init() {
	runCmd.Flags().IntVarP(&runBlocks, "blocks", "n", 0, "Blocks to submit (default: provider init_blocks, at least 1)")
	runCmd.Flags().IntVar(&runBlockSize, "block-size", 0, "Tasks per block (default: nodes_per_block x tasks_per_node)")
	runCmd.Flags().StringVar(&runJobName, "job-name", "", "Job name prefix (default: provider label)")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Show the interactive job view")
	runCmd.Flags().DurationVar(&runInterval, "interval", 5*time.Second, "Status polling interval")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	runCmd.Flags().BoolVar(&runKeepMin, "keep-min-blocks", false, "Resubmit blocks to keep min_blocks active until interrupted")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	words, err := commandAfterDash(cmd, args)
	if err != nil {
		return err
	}
	command := strings.Join(words, " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Provider()
	if err != nil {
		return err
	}

	if runMetricsAddr != "" {
		addr, shutdown, err := serveMetrics(runMetricsAddr, a.Metrics)
		if err != nil {
			return err
		}
		defer shutdown()
		logInfo("Serving metrics on http://%s/metrics", addr)
	}

	blocks := runBlocks
	if blocks < 1 {
		blocks = max(a.Config.Provider.InitBlocks, 1)
	}
	submit := func(ctx context.Context) (string, error) {
		return p.Submit(ctx, command, runBlockSize, runJobName)
	}
	if err := submitBlocks(ctx, p, blocks, submit); err != nil {
		return err
	}

	watch := runWatch
	if watch && !interactive() {
		logWarning("Not a terminal, falling back to plain monitoring")
		watch = false
	}
	if watch {
		result, err := tui.RunWatcher(ctx, p, runInterval)
		if err != nil {
			return err
		}
		if len(result.Cancelled) > 0 {
			logInfo("Cancelled %d blocks", len(result.Cancelled))
		}
		return nil
	}

	opts := []monitor.Option{
		monitor.WithMetrics(a.Metrics),
		monitor.WithUpdates(logSnapshot),
	}
	if runKeepMin {
		opts = append(opts, monitor.WithMinBlocks(a.Config.Provider.MinBlocks, submit))
	} else {
		opts = append(opts, monitor.WithStopWhenDone())
	}
	mon := monitor.New(runInterval, p, opts...)

	err = mon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logWarning("Interrupted, cancelling remaining blocks")
		ids, cerr := tui.CancelRemaining(context.Background(), p)
		if cerr != nil {
			return errors.ProviderError("cancel", cerr)
		}
		logInfo("Cancelled %d blocks", len(ids))
	} else if err != nil {
		return err
	}

	jobs := p.Jobs()
	fmt.Fprint(cmd.OutOrStdout(), tui.SimpleJobList(p.Label(), jobs))
	return failedBlocks(jobs)
}

// submitBlocks submits n blocks, stopping early when the provider is at capacity.
func submitBlocks(ctx context.Context, p provider.Provider, n int, submit monitor.SubmitFunc) error {
	for i := 0; i < n; i++ {
		id, err := submit(ctx)
		if err != nil {
			return err
		}
		if id == "" {
			logWarning("Provider %s is at capacity; submitted %d of %d blocks", p.Label(), i, n)
			return nil
		}
		logSuccess("Submitted block %s", id)
	}
	return nil
}

func logSnapshot(s monitor.Snapshot) {
	counts := s.Counts()
	args := make([]any, 0, 2*len(counts))
	for st, n := range counts {
		args = append(args, strings.ToLower(string(st)), n)
	}
	logging.Debug("block status", args...)
}

// failedBlocks returns an error when any block failed or timed out.
func failedBlocks(jobs []provider.JobRecord) error {
	failed := 0
	for _, j := range jobs {
		if j.Status == provider.StatusFailed || j.Status == provider.StatusTimeout {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return errors.New(errors.ExitGeneralError, fmt.Sprintf("%d of %d blocks failed", failed, len(jobs)))
}

// serveMetrics exposes the collector on addr/metrics until the returned
// function is called. It returns the address actually bound.
func serveMetrics(addr string, c *metrics.Collector) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn("metrics server stopped", "error", err)
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
