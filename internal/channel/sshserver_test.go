package channel

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/ssh"
)

const testPassword = "secret"

// testServer is an in-process SSH server that runs exec requests with sh and
// serves the sftp subsystem from the local filesystem.
type testServer struct {
	addr    string
	hostKey gossh.PublicKey
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer, err := gossh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}

	config := &gossh.ServerConfig{
		PasswordCallback: func(c gossh.ConnMetadata, pass []byte) (*gossh.Permissions, error) {
			if string(pass) == testPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config)
		}
	}()

	return &testServer{addr: ln.Addr().String(), hostKey: signer.PublicKey()}
}

func (s *testServer) options(t *testing.T) ssh.Options {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return ssh.Options{
		Host:           host,
		Port:           port,
		User:           "tester",
		Password:       testPassword,
		ConnectTimeout: 5 * time.Second,
	}
}

// knownHostsFile writes a known_hosts file trusting key for this server.
func (s *testServer) knownHostsFile(t *testing.T, key gossh.PublicKey) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(s.addr)}, key)
	if err := os.WriteFile(path, []byte(line+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func serveConn(conn net.Conn, config *gossh.ServerConfig) {
	_, chans, reqs, err := gossh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go gossh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(gossh.UnknownChannelType, "only sessions")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go serveSession(ch, requests)
	}
}

func serveSession(ch gossh.Channel, requests <-chan *gossh.Request) {
	var (
		mu     sync.Mutex
		cmd    *exec.Cmd
		exited bool
	)

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := gossh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			c := exec.Command("sh", "-c", payload.Command)
			c.Stdout = ch
			c.Stderr = ch.Stderr()
			c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			if err := c.Start(); err != nil {
				req.Reply(false, nil)
				continue
			}
			mu.Lock()
			cmd = c
			mu.Unlock()
			req.Reply(true, nil)

			go func() {
				err := c.Wait()
				mu.Lock()
				exited = true
				mu.Unlock()
				var exitErr *exec.ExitError
				code := 0
				if errors.As(err, &exitErr) {
					code = exitErr.ExitCode()
				}
				if code < 0 {
					ch.SendRequest("exit-signal", false, gossh.Marshal(struct {
						Signal     string
						CoreDumped bool
						Error      string
						Lang       string
					}{Signal: "KILL"}))
				} else {
					ch.SendRequest("exit-status", false, gossh.Marshal(struct{ Status uint32 }{uint32(code)}))
				}
				ch.Close()
			}()

		case "subsystem":
			var payload struct{ Name string }
			if err := gossh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				req.Reply(false, nil)
				continue
			}
			server, err := sftp.NewServer(ch)
			if err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go func() {
				_ = server.Serve()
				server.Close()
			}()

		case "signal":
			var payload struct{ Signal string }
			if err := gossh.Unmarshal(req.Payload, &payload); err != nil {
				continue
			}
			sig := unix.SIGTERM
			if payload.Signal == string(gossh.SIGKILL) {
				sig = unix.SIGKILL
			}
			mu.Lock()
			if cmd != nil && cmd.Process != nil {
				_ = unix.Kill(-cmd.Process.Pid, sig)
			}
			mu.Unlock()

		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}

	// The client closed the session; make sure nothing outlives it.
	mu.Lock()
	if cmd != nil && !exited {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	mu.Unlock()
}
