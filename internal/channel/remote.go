package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/dustin/go-humanize"
	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"

	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/ssh"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// DefaultDialTries bounds connection attempts for transport errors.
const DefaultDialTries = 3

// RemoteChannel runs commands over SSH and moves files over SFTP.
type RemoteChannel struct {
	host      string
	workDir   string
	scriptDir string
	env       map[string]string
	fs        system.FileSystem
	killGrace time.Duration

	client *gossh.Client
	sftp   *sftp.Client
	seq    atomic.Uint64

	mu     sync.Mutex
	closed bool
}

var (
	_ Channel             = (*RemoteChannel)(nil)
	_ DirectoryTransferer = (*RemoteChannel)(nil)
)

// NewRemoteChannel connects to the host in opts and creates the remote
// script directory. Transport errors are retried with exponential backoff;
// authentication and host key failures are not.
func NewRemoteChannel(ctx context.Context, opts ssh.Options, options ...Option) (*RemoteChannel, error) {
	s := newSettings(options)
	host := opts.Host
	log := logging.ForHost(host)

	config, release, err := opts.ClientConfig()
	if err != nil {
		if errors.Is(err, ssh.ErrKnownHosts) {
			return nil, ferrors.BadHostKey(host, err)
		}
		return nil, ferrors.Authentication(host, err)
	}
	defer release()

	var client *gossh.Client
	dial := func() error {
		c, err := dialSSH(ctx, opts.Address(), config)
		if err != nil {
			if ssh.IsAuthError(err) || ssh.IsHostKeyError(err) {
				return backoff.Permanent(err)
			}
			log.Debug("ssh dial failed", "address", opts.Address(), "error", err)
			return err
		}
		client = c
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0
	var b backoff.BackOff = policy
	if s.dialTries > 0 {
		b = backoff.WithMaxRetries(b, s.dialTries-1)
	}
	if err := backoff.Retry(dial, backoff.WithContext(b, ctx)); err != nil {
		switch {
		case ssh.IsHostKeyError(err):
			return nil, ferrors.BadHostKey(host, err)
		case ssh.IsAuthError(err):
			return nil, ferrors.Authentication(host, err)
		default:
			return nil, ferrors.Transport(host, err)
		}
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, ferrors.Transport(host, fmt.Errorf("failed to start sftp: %w", err))
	}

	c := &RemoteChannel{
		host:      host,
		env:       s.env,
		fs:        s.fs,
		killGrace: s.killGrace,
		client:    client,
		sftp:      sftpClient,
	}

	c.workDir = s.workDir
	if c.workDir == "" || c.workDir == "." {
		if wd, err := sftpClient.Getwd(); err == nil {
			c.workDir = wd
		}
	}

	c.scriptDir = s.scriptDir
	if c.scriptDir == "" {
		c.scriptDir = path.Join("/tmp", opts.User, "scripts")
	} else if !path.IsAbs(c.scriptDir) && c.workDir != "" {
		c.scriptDir = path.Join(c.workDir, c.scriptDir)
	}

	if err := c.makeDir(c.scriptDir, ferrors.BadScriptPath); err != nil {
		c.Close()
		return nil, err
	}

	log.Debug("connected", "user", opts.User, "work_dir", c.workDir, "script_dir", c.scriptDir)
	return c, nil
}

func dialSSH(ctx context.Context, addr string, config *gossh.ClientConfig) (*gossh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(config.Timeout))
	}
	sshConn, chans, reqs, err := gossh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return gossh.NewClient(sshConn, chans, reqs), nil
}

// makeDir creates dir on the remote host. A missing path is BadScriptPath and
// a denied one BadPermsScriptPath; any other failure is reported with other.
func (c *RemoteChannel) makeDir(dir string, other func(host, path string, cause error) *ferrors.ChannelError) error {
	err := c.sftp.MkdirAll(dir)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrPermission):
		return ferrors.BadPermsScriptPath(c.host, dir, err)
	case errors.Is(err, fs.ErrNotExist):
		return ferrors.BadScriptPath(c.host, dir, err)
	default:
		return other(c.host, dir, err)
	}
}

func (c *RemoteChannel) Host() string      { return c.host }
func (c *RemoteChannel) WorkDir() string   { return c.workDir }
func (c *RemoteChannel) ScriptDir() string { return c.scriptDir }

func (c *RemoteChannel) commandLine(cmd string, env map[string]string) string {
	return inDir(c.workDir, withEnvPrefix(cmd, mergeEnv(c.env, env)))
}

// ExecuteSync runs cmd in a new session and waits for its exit status.
func (c *RemoteChannel) ExecuteSync(ctx context.Context, cmd string, timeout time.Duration, env map[string]string) ExecResult {
	log := logging.ForHost(c.host)

	session, err := c.client.NewSession()
	if err != nil {
		log.Warn("failed to open session", "error", err)
		return failed
	}
	defer session.Close()

	var stdout, stderr syncBuffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(c.commandLine(cmd, env)); err != nil {
		log.Warn("failed to start command", "cmd", cmd, "error", err)
		return failed
	}

	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = session.Wait()
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
		code := remoteExitCode(waitErr)
		if code < 0 {
			return failed
		}
		return ExecResult{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}
	case <-expired:
		log.Debug("command timed out", "cmd", cmd, "timeout", timeout)
	case <-ctx.Done():
		log.Debug("command cancelled", "cmd", cmd)
	}

	_ = session.Signal(gossh.SIGKILL)
	session.Close()
	return failed
}

// ExecuteAsync starts cmd in a new session and returns immediately.
func (c *RemoteChannel) ExecuteAsync(ctx context.Context, cmd string, env map[string]string) (AsyncHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, ferrors.Transport(c.host, err)
	}

	h := &remoteHandle{
		id:      fmt.Sprintf("%s:%d", c.host, c.seq.Add(1)),
		session: session,
		stdout:  &syncBuffer{},
		stderr:  &syncBuffer{},
		done:    make(chan struct{}),
		grace:   c.killGrace,
	}
	session.Stdout = h.stdout
	session.Stderr = h.stderr

	if err := session.Start(c.commandLine(cmd, env)); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start %q on %s: %w", cmd, c.host, err)
	}

	logging.ForHost(c.host).Debug("started command", "cmd", cmd, "handle", h.id)

	go func() {
		code := remoteExitCode(session.Wait())
		h.result = ExecResult{ExitCode: code, Stdout: h.stdout.String(), Stderr: h.stderr.String()}
		session.Close()
		close(h.done)
	}()

	return h, nil
}

// remoteExitCode maps the error from session.Wait to an exit code.
func remoteExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *gossh.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Signal() != "" {
			return -1
		}
		return exitErr.ExitStatus()
	}
	return -1
}

// PushFile uploads src into dstDir, creating dstDir first, and sets mode 0777.
func (c *RemoteChannel) PushFile(ctx context.Context, src, dstDir string) (string, error) {
	dst := path.Join(dstDir, filepath.Base(src))

	if err := c.makeDir(dstDir, ferrors.FileCopy); err != nil {
		return "", err
	}

	in, err := c.fs.Open(src)
	if err != nil {
		return "", ferrors.FileCopy(c.host, src, err)
	}
	defer in.Close()

	out, err := c.sftp.Create(dst)
	if err != nil {
		return "", ferrors.FileCopy(c.host, dst, err)
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", ferrors.FileCopy(c.host, dst, err)
	}
	if err := c.sftp.Chmod(dst, 0777); err != nil {
		return "", ferrors.FileCopy(c.host, dst, err)
	}

	logging.ForHost(c.host).Debug("pushed file", "src", src, "dst", dst, "size", humanize.Bytes(uint64(n)))
	return dst, nil
}

// PullFile downloads src into the local dstDir. An existing local file is a
// PathConflict and is left untouched.
func (c *RemoteChannel) PullFile(ctx context.Context, src, dstDir string) (string, error) {
	dst := filepath.Join(dstDir, path.Base(src))

	if err := c.fs.MkdirAll(dstDir, 0755); err != nil {
		return "", ferrors.FileCopy(c.host, dstDir, err)
	}

	in, err := c.sftp.Open(src)
	if err != nil {
		return "", ferrors.FileCopy(c.host, src, err)
	}
	defer in.Close()

	out, err := c.fs.CreateExclusive(dst, 0644)
	if errors.Is(err, fs.ErrExist) {
		return "", ferrors.PathConflict(c.host, dst)
	}
	if err != nil {
		return "", ferrors.FileCopy(c.host, dst, err)
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = c.fs.Remove(dst)
		return "", ferrors.FileCopy(c.host, src, err)
	}

	logging.ForHost(c.host).Debug("pulled file", "src", src, "dst", dst, "size", humanize.Bytes(uint64(n)))
	return dst, nil
}

// PushDirectory mirrors the local srcDir under dstDir on the remote host.
func (c *RemoteChannel) PushDirectory(ctx context.Context, srcDir, dstDir string) (string, error) {
	root := path.Join(dstDir, filepath.Base(filepath.Clean(srcDir)))

	m := &mirror{
		list: func(dir string) ([]treeEntry, error) {
			des, err := c.fs.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			return entriesFromDir(des), nil
		},
		joinSource: filepath.Join,
		joinDest: func(dir, name string) (string, error) {
			return path.Join(dir, name), nil
		},
		probe: func(dir string) probeResult {
			info, err := c.sftp.Stat(dir)
			return probeFromStat(info, err, isNotExist)
		},
		mkdir: func(dir string) error { return c.sftp.MkdirAll(dir) },
		copyFile: func(ctx context.Context, src, dst string) error {
			_, err := c.PushFile(ctx, src, dst)
			return err
		},
		parallel: transferParallelism,
	}

	if err := m.run(ctx, srcDir, root); err != nil {
		return "", ferrors.FileCopy(c.host, srcDir, err)
	}
	return root, nil
}

// PullDirectory mirrors srcDir from the remote host under the local dstDir.
// Local paths are resolved with securejoin so remote names cannot escape dstDir.
func (c *RemoteChannel) PullDirectory(ctx context.Context, srcDir, dstDir string) (string, error) {
	root, err := securejoin.SecureJoin(dstDir, path.Base(path.Clean(srcDir)))
	if err != nil {
		return "", ferrors.FileCopy(c.host, dstDir, err)
	}

	m := &mirror{
		list: func(dir string) ([]treeEntry, error) {
			infos, err := c.sftp.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			return entriesFromInfo(infos), nil
		},
		joinSource: path.Join,
		joinDest:   securejoin.SecureJoin,
		probe: func(dir string) probeResult {
			info, err := c.fs.Stat(dir)
			return probeFromStat(info, err, isNotExist)
		},
		mkdir: func(dir string) error { return c.fs.MkdirAll(dir, 0755) },
		copyFile: func(ctx context.Context, src, dst string) error {
			_, err := c.PullFile(ctx, src, dst)
			return err
		},
		parallel: transferParallelism,
	}

	if err := m.run(ctx, srcDir, root); err != nil {
		return "", ferrors.FileCopy(c.host, srcDir, err)
	}
	return root, nil
}

// Close shuts down the SFTP client and the SSH connection. It reports true
// the first time and false afterwards.
func (c *RemoteChannel) Close() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, nil
	}
	c.closed = true

	sftpErr := c.sftp.Close()
	clientErr := c.client.Close()
	if clientErr != nil && !errors.Is(clientErr, net.ErrClosed) {
		return true, clientErr
	}
	if sftpErr != nil && !errors.Is(sftpErr, net.ErrClosed) && !errors.Is(sftpErr, io.EOF) {
		return true, sftpErr
	}
	return true, nil
}

// remoteHandle tracks a command started in its own SSH session.
type remoteHandle struct {
	id      string
	session *gossh.Session
	stdout  *syncBuffer
	stderr  *syncBuffer
	done    chan struct{}
	result  ExecResult
	grace   time.Duration
}

func (h *remoteHandle) ID() string     { return h.id }
func (h *remoteHandle) Stdout() string { return h.stdout.String() }
func (h *remoteHandle) Stderr() string { return h.stderr.String() }

func (h *remoteHandle) Poll() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *remoteHandle) Result(ctx context.Context) (ExecResult, error) {
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

// Cancel signals the remote process with SIGTERM, then SIGKILL after the
// grace period, and finally closes the session.
func (h *remoteHandle) Cancel() error {
	if h.Poll() {
		return nil
	}
	_ = h.session.Signal(gossh.SIGTERM)

	timer := time.NewTimer(h.grace)
	defer timer.Stop()
	select {
	case <-h.done:
		return nil
	case <-timer.C:
	}

	_ = h.session.Signal(gossh.SIGKILL)
	if err := h.session.Close(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
