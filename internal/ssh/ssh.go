// Package ssh builds SSH client configurations for remote channels.
package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Default SSH configuration values.
const (
	DefaultPort           = 22
	DefaultConnectTimeout = 10 * time.Second
)

// ErrKnownHosts marks failures to load the known_hosts file.
var ErrKnownHosts = errors.New("known hosts unavailable")

// Options configures SSH connection parameters.
type Options struct {
	Port               int
	User               string
	Host               string
	StrictHostKeyCheck bool
	KnownHostsFile     string
	ConnectTimeout     time.Duration
	IdentityFiles      []string
	Password           string
	UseAgent           bool
}

// DefaultOptions returns Options for host with the current user, strict host
// key checking against ~/.ssh/known_hosts and the SSH agent enabled.
func DefaultOptions(host string) Options {
	o := Options{
		Port:               DefaultPort,
		Host:               host,
		StrictHostKeyCheck: true,
		ConnectTimeout:     DefaultConnectTimeout,
		UseAgent:           true,
	}
	if u, err := user.Current(); err == nil {
		o.User = u.Username
	}
	if home, err := os.UserHomeDir(); err == nil {
		o.KnownHostsFile = home + "/.ssh/known_hosts"
	}
	return o
}

// WithUser returns a copy with the specified login user.
func (o Options) WithUser(name string) Options {
	o.User = name
	return o
}

// WithPort returns a copy with the specified port.
func (o Options) WithPort(port int) Options {
	o.Port = port
	return o
}

// WithTimeout returns a copy with the specified connect timeout.
func (o Options) WithTimeout(d time.Duration) Options {
	o.ConnectTimeout = d
	return o
}

// WithIdentityFiles returns a copy that authenticates with the given private keys.
func (o Options) WithIdentityFiles(files ...string) Options {
	o.IdentityFiles = append([]string(nil), files...)
	return o
}

// WithPassword returns a copy that also offers password authentication.
func (o Options) WithPassword(password string) Options {
	o.Password = password
	return o
}

// WithKnownHosts returns a copy that verifies host keys against file.
// An empty file disables host key verification.
func (o Options) WithKnownHosts(file string) Options {
	o.KnownHostsFile = file
	o.StrictHostKeyCheck = file != ""
	return o
}

// WithoutAgent returns a copy that does not consult $SSH_AUTH_SOCK.
func (o Options) WithoutAgent() Options {
	o.UseAgent = false
	return o
}

// Address returns the host:port dial address.
func (o Options) Address() string {
	port := o.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(port))
}

// Destination returns the user@host string.
func (o Options) Destination() string {
	return fmt.Sprintf("%s@%s", o.User, o.Host)
}

// ClientConfig builds the *ssh.ClientConfig for these options. The returned
// release func closes the agent connection, if one was opened, and must be
// called once the handshake is done.
func (o Options) ClientConfig() (*ssh.ClientConfig, func(), error) {
	release := func() {}

	hostKeyCallback, err := o.hostKeyCallback()
	if err != nil {
		return nil, release, err
	}

	var auth []ssh.AuthMethod

	var signers []ssh.Signer
	for _, path := range o.IdentityFiles {
		signer, err := loadSigner(path)
		if err != nil {
			return nil, release, err
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		auth = append(auth, ssh.PublicKeys(signers...))
	}

	if o.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			if conn, err := net.Dial("unix", sock); err == nil {
				release = func() { conn.Close() }
				auth = append(auth, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			}
		}
	}

	if o.Password != "" {
		auth = append(auth, ssh.Password(o.Password))
	}

	if len(auth) == 0 {
		release()
		return nil, func() {}, errors.New("no SSH authentication method available: set identity_files or run an ssh-agent")
	}

	return &ssh.ClientConfig{
		User:            o.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         o.ConnectTimeout,
	}, release, nil
}

func (o Options) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if !o.StrictHostKeyCheck || o.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(o.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKnownHosts, o.KnownHostsFile, err)
	}
	return cb, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file %s: %w", path, err)
	}
	return signer, nil
}

// IsHostKeyError reports whether err came from known_hosts verification.
func IsHostKeyError(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	var revoked *knownhosts.RevokedError
	if errors.As(err, &revoked) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "knownhosts:")
}

// IsAuthError reports whether err is a rejected authentication attempt.
// The client reports exhausted auth methods as a plain handshake error.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain")
}
