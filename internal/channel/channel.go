package channel

import (
	"context"
	"time"
)

// ExecResult holds the outcome of a command run through a channel.
// ExitCode < 0 means the outcome could not be determined.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the command ran and exited 0.
func (r ExecResult) Succeeded() bool {
	return r.ExitCode == 0
}

// Determined reports whether the command's outcome is known.
func (r ExecResult) Determined() bool {
	return r.ExitCode >= 0
}

// failed is the sentinel for timeouts and transport failures.
var failed = ExecResult{ExitCode: -1}

// Channel runs commands and moves files on one endpoint.
// All methods are safe for concurrent use.
type Channel interface {
	// Host returns the endpoint identity ("localhost" or a hostname).
	Host() string

	// WorkDir returns the directory commands run in.
	WorkDir() string

	// ScriptDir returns the staging directory for scripts on the endpoint.
	ScriptDir() string

	// ExecuteSync runs cmd and waits for it to exit. A timeout, cancelled ctx
	// or transport failure yields ExitCode -1 with empty output. A timeout of
	// zero or less waits until ctx is done.
	ExecuteSync(ctx context.Context, cmd string, timeout time.Duration, env map[string]string) ExecResult

	// ExecuteAsync starts cmd without waiting for it.
	ExecuteAsync(ctx context.Context, cmd string, env map[string]string) (AsyncHandle, error)

	// PushFile copies the local file src into dstDir on the endpoint and
	// returns the destination path. The copy is made executable.
	PushFile(ctx context.Context, src, dstDir string) (string, error)

	// PullFile copies src from the endpoint into the local dstDir. It never
	// overwrites an existing local file.
	PullFile(ctx context.Context, src, dstDir string) (string, error)

	// Close releases the channel. It reports whether anything was closed and
	// is safe to call more than once.
	Close() (bool, error)
}

// DirectoryTransferer is implemented by channels that can mirror file trees.
type DirectoryTransferer interface {
	// PushDirectory mirrors the local srcDir under dstDir on the endpoint and
	// returns the destination root.
	PushDirectory(ctx context.Context, srcDir, dstDir string) (string, error)

	// PullDirectory mirrors srcDir from the endpoint under the local dstDir
	// and returns the destination root.
	PullDirectory(ctx context.Context, srcDir, dstDir string) (string, error)
}

// AsyncHandle is an in-flight command started by ExecuteAsync.
type AsyncHandle interface {
	// ID identifies the process: a pid locally, host:seq remotely.
	ID() string

	// Poll reports whether the command has finished without blocking.
	Poll() bool

	// Result blocks until the command finishes or ctx is done. Once the
	// command has finished every call returns the same result.
	Result(ctx context.Context) (ExecResult, error)

	// Stdout returns the standard output captured so far.
	Stdout() string

	// Stderr returns the standard error captured so far.
	Stderr() string

	// Cancel terminates the command. Cancelling a finished command is a no-op.
	Cancel() error
}
