package channel

import (
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// Option configures a channel at construction.
type Option func(*settings)

type settings struct {
	workDir   string
	scriptDir string
	env       map[string]string
	fs        system.FileSystem
	killGrace time.Duration
	dialTries uint64
}

func newSettings(opts []Option) *settings {
	s := &settings{
		fs:        system.DefaultFS(),
		killGrace: DefaultKillGrace,
		dialTries: DefaultDialTries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithWorkDir sets the directory commands run in.
func WithWorkDir(dir string) Option {
	return func(s *settings) {
		s.workDir = dir
	}
}

// WithScriptDir sets the script staging directory. It is created when the
// channel is constructed.
func WithScriptDir(dir string) Option {
	return func(s *settings) {
		s.scriptDir = dir
	}
}

// WithEnv sets environment variables applied to every command.
// Per-call overrides take precedence.
func WithEnv(env map[string]string) Option {
	return func(s *settings) {
		s.env = mergeEnv(s.env, env)
	}
}

// WithFileSystem sets the local filesystem used for transfers.
func WithFileSystem(fs system.FileSystem) Option {
	return func(s *settings) {
		s.fs = fs
	}
}

// WithKillGrace sets the delay between SIGTERM and SIGKILL on cancel or timeout.
func WithKillGrace(d time.Duration) Option {
	return func(s *settings) {
		s.killGrace = d
	}
}

// WithDialTries bounds connection attempts for remote channels.
func WithDialTries(n uint64) Option {
	return func(s *settings) {
		s.dialTries = n
	}
}
