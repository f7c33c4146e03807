package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/testutil"
)

// resetFlags restores every command flag to its default between runs.
func resetFlags() {
	verbose, jsonOutput, configPath = false, false, ""
	execTimeout, execEnv = time.Minute, nil
	pushRecursive, pullRecursive = false, false
	wrapLauncher, wrapTasksPerNode, wrapNodesPerBlock = "single-node", 1, 1
	wrapWalltime, wrapOverrides = "00:10:00", ""
	pingTimeout = 10 * time.Second
	runBlocks, runBlockSize, runJobName = 0, 0, ""
	runWatch, runInterval, runMetricsAddr, runKeepMin = false, 5*time.Second, "", false
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	logging.SetUserOutput(io.Discard, io.Discard)
	t.Cleanup(func() {
		appOptions = nil
		logging.SetUserOutput(os.Stdout, os.Stderr)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// missingConfig returns a config path that does not exist, so defaults apply.
func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "forage-blocks.toml")
}

func withMockChannel(t *testing.T) *channel.MockChannel {
	t.Helper()
	env := testutil.NewTestEnv(t)
	appOptions = env.AppOptions()
	return env.Channel
}

func TestLaunchersCommand(t *testing.T) {
	out, err := execute(t, "launchers")
	if err != nil {
		t.Fatalf("launchers failed: %v", err)
	}

	for _, want := range []string{"single-node", "srun-mpi", "aprun", "local", "slurm", "condor"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWrapCommand(t *testing.T) {
	out, err := execute(t, "wrap", "--launcher", "srun", "--tasks-per-node", "2", "--nodes-per-block", "3", "--", "echo", "hi")
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}

	if !strings.Contains(out, "WORKERCOUNT=6") {
		t.Errorf("output missing WORKERCOUNT=6:\n%s", out)
	}
	if !strings.Contains(out, "\necho hi\n") {
		t.Errorf("output missing command line:\n%s", out)
	}
}

func TestWrapCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"wrap"}},
		{"unknown launcher", []string{"wrap", "--launcher", "nope", "--", "true"}},
		{"bad walltime", []string{"wrap", "--walltime", "ten", "--", "true"}},
		{"zero tasks", []string{"wrap", "--tasks-per-node", "0", "--", "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestExecCommand(t *testing.T) {
	ch := withMockChannel(t)
	ch.SetExecResult("echo", channel.ExecResult{Stdout: "hi\n"})

	out, err := execute(t, "--config", missingConfig(t), "exec", "-e", "A=1", "--", "echo", "hi")
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if out != "hi\n" {
		t.Errorf("output = %q, want %q", out, "hi\n")
	}

	calls := ch.Calls("ExecuteSync")
	if len(calls) != 1 {
		t.Fatalf("ExecuteSync called %d times, want 1", len(calls))
	}
	if calls[0].Args[0] != "echo hi" {
		t.Errorf("command = %v, want %q", calls[0].Args[0], "echo hi")
	}
	env, _ := calls[0].Args[2].(map[string]string)
	if env["A"] != "1" {
		t.Errorf("env = %v, want A=1", env)
	}
}

func TestExecCommand_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		result   channel.ExecResult
		wantCode int
	}{
		{"command failure", channel.ExecResult{ExitCode: 3}, 3},
		{"undetermined", channel.ExecResult{ExitCode: -1}, errors.ExitUndetermined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := withMockChannel(t)
			ch.SetExecResult("check", tt.result)

			_, err := execute(t, "--config", missingConfig(t), "exec", "--", "check")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.GetExitCode(err); got != tt.wantCode {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestExecCommand_BadEnv(t *testing.T) {
	withMockChannel(t)

	_, err := execute(t, "--config", missingConfig(t), "exec", "-e", "NOEQUALS", "--", "true")
	if err == nil {
		t.Fatal("expected an error for a malformed -e value")
	}
}

func TestExecCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[channel]\ntype = \"telnet\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "--config", path, "exec", "--", "true")
	if got := errors.GetExitCode(err); got != errors.ExitConfigError {
		t.Errorf("GetExitCode() = %d, want %d", got, errors.ExitConfigError)
	}
}

func TestPushPullCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"push file", []string{"push", "/tmp/a.txt", "/remote"}, "/remote/a.txt\n"},
		{"pull file", []string{"pull", "/remote/out.log", "/tmp/results"}, "/tmp/results/out.log\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withMockChannel(t)

			out, err := execute(t, append([]string{"--config", missingConfig(t)}, tt.args...)...)
			if err != nil {
				t.Fatalf("%s failed: %v", tt.args[0], err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestPushCommand_RecursiveUnsupported(t *testing.T) {
	withMockChannel(t)

	_, err := execute(t, "--config", missingConfig(t), "push", "-r", "/tmp/dir", "/remote")
	if err == nil {
		t.Fatal("expected an error: the mock channel cannot transfer directories")
	}
}

func TestPushPullCommands_LocalTree(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(t.TempDir(), "inputs")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "data.txt"), []byte("42"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := filepath.Join(t.TempDir(), "forage-blocks.toml")
	if err := os.WriteFile(cfg, []byte(fmt.Sprintf("[channel]\nwork_dir = %q\n", work)), 0644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(work, "staged")
	out, err := execute(t, "--config", cfg, "push", "-r", src, dst)
	if err != nil {
		t.Fatalf("push -r failed: %v", err)
	}
	root := strings.TrimSpace(out)

	data, err := os.ReadFile(filepath.Join(root, "sub", "data.txt"))
	if err != nil {
		t.Fatalf("pushed file missing: %v", err)
	}
	if string(data) != "42" {
		t.Errorf("pushed content = %q, want %q", data, "42")
	}

	back := t.TempDir()
	if _, err := execute(t, "--config", cfg, "pull", "-r", root, back); err != nil {
		t.Fatalf("pull -r failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(back, "inputs", "sub", "data.txt")); err != nil {
		t.Errorf("pulled file missing: %v", err)
	}
}

func TestPingCommand(t *testing.T) {
	ch := withMockChannel(t)
	ch.SetExecResult("cat /proc/uptime", channel.ExecResult{Stdout: "120.5 10.0\n"})

	out, err := execute(t, "--config", missingConfig(t), "ping")
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	for _, want := range []string{"Host: mockhost", "Reachable: ✓", "Uptime: 2m", "Status: healthy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPingCommand_Unreachable(t *testing.T) {
	ch := withMockChannel(t)
	ch.SetExecResult("true", channel.ExecResult{ExitCode: -1})

	out, err := execute(t, "--config", missingConfig(t), "ping")
	if got := errors.GetExitCode(err); got != errors.ExitTransport {
		t.Errorf("GetExitCode() = %d, want %d", got, errors.ExitTransport)
	}
	if !strings.Contains(out, "Status: unreachable") {
		t.Errorf("output missing unreachable status:\n%s", out)
	}
}

// localRunConfig writes a config running blocks as local processes under t's temp dir.
func localRunConfig(t *testing.T, launcherName string) string {
	t.Helper()
	env := testutil.NewTestEnv(t)
	env.WriteConfig(func(c *config.Config) {
		c.Provider.Launcher = launcherName
	})
	return env.ConfigPath
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "--config", localRunConfig(t, "single-node"), "run", "-n", "2", "--interval", "20ms", "--", "true")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := strings.Count(out, "(COMPLETED)"); got != 2 {
		t.Errorf("completed blocks = %d, want 2:\n%s", got, out)
	}
}

func TestRunCommand_WatchWithoutTerminal(t *testing.T) {
	interactive = func() bool { return false }
	t.Cleanup(func() { interactive = terminal.Interactive })

	out, err := execute(t, "--config", localRunConfig(t, "single-node"), "run", "--watch", "--interval", "20ms", "--", "true")
	if err != nil {
		t.Fatalf("run --watch failed: %v", err)
	}

	if !strings.Contains(out, "(COMPLETED)") {
		t.Errorf("expected a completed block in the plain listing:\n%s", out)
	}
}

func TestRunCommand_FailedBlock(t *testing.T) {
	_, err := execute(t, "--config", localRunConfig(t, "simple"), "run", "--interval", "20ms", "--", "exit 7")
	if err == nil {
		t.Fatal("expected an error for a failed block")
	}
	if !strings.Contains(err.Error(), "1 of 1 blocks failed") {
		t.Errorf("error = %v", err)
	}
}

func TestRunCommand_NoCommand(t *testing.T) {
	if _, err := execute(t, "run"); err == nil {
		t.Fatal("expected a usage error")
	}
}

func TestServeMetrics(t *testing.T) {
	c := metrics.New()
	c.RecordPoll("test")

	addr, shutdown, err := serveMetrics("127.0.0.1:0", c)
	if err != nil {
		t.Fatalf("serveMetrics() error: %v", err)
	}
	defer shutdown()

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "forage_blocks_monitor_polls_total") {
		t.Errorf("metrics output missing status polls counter")
	}
}

func TestParseEnv(t *testing.T) {
	env, err := parseEnv([]string{"A=1", "B=x=y", "C="})
	if err != nil {
		t.Fatalf("parseEnv() error: %v", err)
	}
	want := map[string]string{"A": "1", "B": "x=y", "C": ""}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env[%q] = %q, want %q", k, env[k], v)
		}
	}

	if _, err := parseEnv([]string{"=1"}); err == nil {
		t.Error("parseEnv should reject an empty key")
	}
	if env, _ := parseEnv(nil); env != nil {
		t.Error("parseEnv(nil) should return nil")
	}
}

func TestFailedBlocks(t *testing.T) {
	if err := failedBlocks(nil); err != nil {
		t.Errorf("failedBlocks(nil) = %v, want nil", err)
	}
}
