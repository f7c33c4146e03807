// Package testutil provides test utilities for command and integration tests
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// TestEnv holds the test environment
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	WorkDir    string
	ConfigPath string
	Config     *config.Config
	Channel    *channel.MockChannel
	FS         *system.MockFS
}

// NewTestEnv creates a test environment with a config file on disk, a mock
// channel and a mock file system. The config runs a local provider with its
// work, script and audit directories under TmpDir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	workDir := filepath.Join(tmpDir, "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}

	cfg := config.Default()
	cfg.Channel.WorkDir = workDir
	cfg.Provider.Label = "test"
	cfg.Provider.MaxBlocks = 4
	cfg.Provider.ScriptDir = filepath.Join(tmpDir, "scripts")
	cfg.Audit.Dir = filepath.Join(tmpDir, "audit")

	env := &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		WorkDir:    workDir,
		ConfigPath: filepath.Join(tmpDir, "forage-blocks.toml"),
		Config:     cfg,
		Channel:    channel.NewMockChannel(),
		FS:         system.NewMockFS(),
	}
	env.WriteConfig(nil)

	return env
}

// WriteConfig applies mutate to the environment's config and writes it to
// ConfigPath.
func (e *TestEnv) WriteConfig(mutate func(*config.Config)) {
	e.T.Helper()

	if mutate != nil {
		mutate(e.Config)
	}

	f, err := os.Create(e.ConfigPath)
	if err != nil {
		e.T.Fatalf("Failed to create config: %v", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(e.Config); err != nil {
		e.T.Fatalf("Failed to write config: %v", err)
	}
}

// LoadConfig reads ConfigPath back through config.Load
func (e *TestEnv) LoadConfig() (*config.Config, error) {
	return config.Load(e.ConfigPath)
}

// AppOptions returns options that route an App through the mocks
func (e *TestEnv) AppOptions() []app.Option {
	return []app.Option{
		app.WithChannel(e.Channel),
		app.WithFileSystem(e.FS),
	}
}

// NewApp builds an App from the environment's config and mocks
func (e *TestEnv) NewApp() *app.App {
	e.T.Helper()

	a, err := app.New(context.Background(), e.Config, e.AppOptions()...)
	if err != nil {
		e.T.Fatalf("Failed to create app: %v", err)
	}
	return a
}

// CreateFile writes a real file under TmpDir and returns its path
func (e *TestEnv) CreateFile(rel, content string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.T.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write file: %v", err)
	}
	return path
}
