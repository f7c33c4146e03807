package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	securejoin "github.com/cyphar/filepath-securejoin"

	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// LocalHost is the endpoint identity of a LocalChannel.
const LocalHost = "localhost"

// DefaultLocalScriptDir is the staging directory, relative to the working
// directory, used when none is configured.
const DefaultLocalScriptDir = ".scripts"

// LocalChannel runs commands with sh on this machine.
type LocalChannel struct {
	workDir   string
	scriptDir string
	env       map[string]string
	fs        system.FileSystem
	killGrace time.Duration
}

var (
	_ Channel             = (*LocalChannel)(nil)
	_ DirectoryTransferer = (*LocalChannel)(nil)
)

// NewLocalChannel creates a LocalChannel and its script directory.
func NewLocalChannel(opts ...Option) (*LocalChannel, error) {
	s := newSettings(opts)

	workDir := s.workDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, ferrors.BadScriptPath(LocalHost, ".", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, ferrors.BadScriptPath(LocalHost, workDir, err)
	}

	scriptDir := s.scriptDir
	if scriptDir == "" {
		scriptDir = DefaultLocalScriptDir
	}
	if !filepath.IsAbs(scriptDir) {
		scriptDir = filepath.Join(workDir, scriptDir)
	}

	if err := s.fs.MkdirAll(scriptDir, 0755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, ferrors.BadPermsScriptPath(LocalHost, scriptDir, err)
		}
		return nil, ferrors.BadScriptPath(LocalHost, scriptDir, err)
	}

	return &LocalChannel{
		workDir:   workDir,
		scriptDir: scriptDir,
		env:       s.env,
		fs:        s.fs,
		killGrace: s.killGrace,
	}, nil
}

func (c *LocalChannel) Host() string      { return LocalHost }
func (c *LocalChannel) WorkDir() string   { return c.workDir }
func (c *LocalChannel) ScriptDir() string { return c.scriptDir }

func (c *LocalChannel) command(cmdline string, env map[string]string) *exec.Cmd {
	cmd := exec.Command("sh", "-c", cmdline)
	cmd.Dir = c.workDir
	cmd.Env = append(os.Environ(), envPairs(mergeEnv(c.env, env))...)
	// Own process group, so the whole tree can be signalled and so signals
	// sent to this process's group do not reach it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = c.killGrace
	return cmd
}

// ExecuteSync runs cmd with sh -c and waits for it. On timeout or ctx
// cancellation the process group is terminated and ExitCode is -1.
func (c *LocalChannel) ExecuteSync(ctx context.Context, cmdline string, timeout time.Duration, env map[string]string) ExecResult {
	log := logging.ForHost(LocalHost)

	cmd := c.command(cmdline, env)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		log.Warn("failed to start command", "cmd", cmdline, "error", err)
		return failed
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-done:
		return ExecResult{
			ExitCode: exitCodeOf(cmd.ProcessState),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	case <-expired:
		log.Debug("command timed out", "cmd", cmdline, "timeout", timeout, "pid", cmd.Process.Pid)
	case <-ctx.Done():
		log.Debug("command cancelled", "cmd", cmdline, "pid", cmd.Process.Pid)
	}

	if err := terminateGroup(cmd.Process.Pid, c.killGrace, done); err != nil {
		log.Warn("failed to terminate process group", "pid", cmd.Process.Pid, "error", err)
	}
	<-done
	return failed
}

// ExecuteAsync starts cmd in its own process group and returns immediately.
func (c *LocalChannel) ExecuteAsync(ctx context.Context, cmdline string, env map[string]string) (AsyncHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := c.command(cmdline, env)
	h := &localHandle{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		done:   make(chan struct{}),
		grace:  c.killGrace,
	}
	cmd.Stdout = h.stdout
	cmd.Stderr = h.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", cmdline, err)
	}
	h.pid = cmd.Process.Pid

	logging.ForHost(LocalHost).Debug("started command", "cmd", cmdline, "pid", h.pid)

	go func() {
		_ = cmd.Wait()
		h.result = ExecResult{
			ExitCode: exitCodeOf(cmd.ProcessState),
			Stdout:   h.stdout.String(),
			Stderr:   h.stderr.String(),
		}
		close(h.done)
	}()

	return h, nil
}

// PushFile copies src into dstDir and makes it executable. Copying a file
// onto itself is a no-op.
func (c *LocalChannel) PushFile(ctx context.Context, src, dstDir string) (string, error) {
	src, dstDir = c.resolve(src), c.resolve(dstDir)
	dst := filepath.Join(dstDir, filepath.Base(src))

	if sameDir(filepath.Dir(src), dstDir) {
		return dst, nil
	}

	if err := c.fs.MkdirAll(dstDir, 0755); err != nil {
		return "", ferrors.FileCopy(LocalHost, dstDir, err)
	}

	n, err := c.copy(src, dst, c.fs.Create)
	if err != nil {
		return "", ferrors.FileCopy(LocalHost, src, err)
	}
	if err := c.fs.Chmod(dst, 0777); err != nil {
		return "", ferrors.FileCopy(LocalHost, dst, err)
	}

	logging.ForHost(LocalHost).Debug("pushed file", "src", src, "dst", dst, "size", humanize.Bytes(uint64(n)))
	return dst, nil
}

// PullFile copies src into dstDir. An existing destination file is a
// PathConflict and is left untouched.
func (c *LocalChannel) PullFile(ctx context.Context, src, dstDir string) (string, error) {
	src, dstDir = c.resolve(src), c.resolve(dstDir)
	dst := filepath.Join(dstDir, filepath.Base(src))

	if err := c.fs.MkdirAll(dstDir, 0755); err != nil {
		return "", ferrors.FileCopy(LocalHost, dstDir, err)
	}

	n, err := c.copy(src, dst, c.fs.CreateExclusive)
	if errors.Is(err, fs.ErrExist) {
		return "", ferrors.PathConflict(LocalHost, dst)
	}
	if err != nil {
		return "", ferrors.FileCopy(LocalHost, src, err)
	}

	logging.ForHost(LocalHost).Debug("pulled file", "src", src, "dst", dst, "size", humanize.Bytes(uint64(n)))
	return dst, nil
}

func (c *LocalChannel) copy(src, dst string, create func(string, fs.FileMode) (io.WriteCloser, error)) (int64, error) {
	in, err := c.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := create(dst, 0644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = c.fs.Remove(dst)
		return n, err
	}
	return n, nil
}

// PushDirectory mirrors srcDir under dstDir.
func (c *LocalChannel) PushDirectory(ctx context.Context, srcDir, dstDir string) (string, error) {
	return c.mirrorDir(ctx, srcDir, dstDir, c.PushFile)
}

// PullDirectory mirrors srcDir under dstDir. Existing files are conflicts.
func (c *LocalChannel) PullDirectory(ctx context.Context, srcDir, dstDir string) (string, error) {
	return c.mirrorDir(ctx, srcDir, dstDir, c.PullFile)
}

func (c *LocalChannel) mirrorDir(ctx context.Context, srcDir, dstDir string, copyFile func(context.Context, string, string) (string, error)) (string, error) {
	srcDir, dstDir = c.resolve(srcDir), c.resolve(dstDir)
	root, err := securejoin.SecureJoin(dstDir, filepath.Base(filepath.Clean(srcDir)))
	if err != nil {
		return "", ferrors.FileCopy(LocalHost, dstDir, err)
	}

	m := &mirror{
		list: func(dir string) ([]treeEntry, error) {
			des, err := c.fs.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			return entriesFromDir(des), nil
		},
		joinSource: filepath.Join,
		joinDest:   securejoin.SecureJoin,
		probe: func(dir string) probeResult {
			info, err := c.fs.Stat(dir)
			return probeFromStat(info, err, isNotExist)
		},
		mkdir: func(dir string) error { return c.fs.MkdirAll(dir, 0755) },
		copyFile: func(ctx context.Context, src, dst string) error {
			_, err := copyFile(ctx, src, dst)
			return err
		},
		parallel: transferParallelism,
	}

	if err := m.run(ctx, srcDir, root); err != nil {
		return "", ferrors.FileCopy(LocalHost, srcDir, err)
	}
	return root, nil
}

// Close is a no-op for local channels and reports false.
func (c *LocalChannel) Close() (bool, error) {
	return false, nil
}

// localHandle tracks a process started by ExecuteAsync.
type localHandle struct {
	pid    int
	stdout *syncBuffer
	stderr *syncBuffer
	done   chan struct{}
	result ExecResult
	grace  time.Duration
}

func (h *localHandle) ID() string     { return strconv.Itoa(h.pid) }
func (h *localHandle) Stdout() string { return h.stdout.String() }
func (h *localHandle) Stderr() string { return h.stderr.String() }

func (h *localHandle) Poll() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *localHandle) Result(ctx context.Context) (ExecResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	default:
	}
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return ExecResult{}, ctx.Err()
	}
}

func (h *localHandle) Cancel() error {
	if h.Poll() {
		return nil
	}
	return terminateGroup(h.pid, h.grace, h.done)
}

// exitCodeOf returns the exit status, or -1 if the process was killed by a
// signal or never finished.
func exitCodeOf(ps *os.ProcessState) int {
	if ps == nil {
		return -1
	}
	return ps.ExitCode()
}

// resolve interprets a relative path against the work dir, where commands run.
func (c *LocalChannel) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.workDir, p)
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(absA); err == nil {
		absA = resolved
	}
	if resolved, err := filepath.EvalSymlinks(absB); err == nil {
		absB = resolved
	}
	return absA == absB
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// transferParallelism bounds concurrent file copies within one directory.
const transferParallelism = 4
