package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/config"
)

func TestLoadValidConfig(t *testing.T) {
	cfg, err := ValidConfig()
	if err != nil {
		t.Fatalf("ValidConfig() error: %v", err)
	}

	if cfg.Provider.Label != "workers" {
		t.Errorf("Label = %q, want %q", cfg.Provider.Label, "workers")
	}
	if cfg.Provider.TasksPerNode != 2 {
		t.Errorf("TasksPerNode = %d, want 2", cfg.Provider.TasksPerNode)
	}
	if cfg.Provider.CmdTimeout.Duration != 15*time.Second {
		t.Errorf("CmdTimeout = %v, want 15s", cfg.Provider.CmdTimeout.Duration)
	}
	if cfg.Channel.Env["OMP_NUM_THREADS"] != "1" {
		t.Errorf("Env = %v, want OMP_NUM_THREADS=1", cfg.Channel.Env)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Valid config should pass validation: %v", err)
	}
}

func TestLoadSlurmConfig(t *testing.T) {
	cfg, err := SlurmConfig()
	if err != nil {
		t.Fatalf("SlurmConfig() error: %v", err)
	}

	if cfg.Channel.Host != "login1.cluster.example" {
		t.Errorf("Host = %q, want %q", cfg.Channel.Host, "login1.cluster.example")
	}
	if cfg.Channel.ConnectTimeout.Duration != 20*time.Second {
		t.Errorf("ConnectTimeout = %v, want 20s", cfg.Channel.ConnectTimeout.Duration)
	}
	if cfg.Provider.Type != "slurm" || cfg.Provider.Partition != "compute" {
		t.Errorf("Provider = %+v", cfg.Provider)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Provider.Parallelism != 1 {
		t.Errorf("Parallelism = %g, want default 1", cfg.Provider.Parallelism)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Slurm config should pass validation: %v", err)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	cfg, err := InvalidConfig()
	if err != nil {
		t.Fatalf("InvalidConfig() error: %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Invalid config should fail validation")
	}
	if err := cfg.Provider.Validate(); err == nil {
		t.Error("Invalid provider section should fail validation")
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture("nope.toml"); err == nil {
		t.Error("LoadFixture should fail for a missing fixture")
	}
}

func TestNewTestEnv(t *testing.T) {
	env := NewTestEnv(t)

	loaded, err := env.LoadConfig()
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if loaded.Channel.WorkDir != env.WorkDir {
		t.Errorf("WorkDir = %q, want %q", loaded.Channel.WorkDir, env.WorkDir)
	}

	env.WriteConfig(func(c *config.Config) {
		c.Provider.Launcher = "simple"
	})
	loaded, err = env.LoadConfig()
	if err != nil {
		t.Fatalf("rewritten config does not load: %v", err)
	}
	if loaded.Provider.Launcher != "simple" {
		t.Errorf("Launcher = %q, want %q", loaded.Provider.Launcher, "simple")
	}

	a := env.NewApp()
	if a.Channel != env.Channel {
		t.Error("NewApp should use the mock channel")
	}

	path := env.CreateFile("inputs/data.txt", "42")
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "42" {
		t.Errorf("CreateFile() content = %q, %v", data, err)
	}
}
