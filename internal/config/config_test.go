package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forage-blocks.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Channel.Type != ChannelLocal {
		t.Errorf("Channel.Type = %q, want %q", cfg.Channel.Type, ChannelLocal)
	}
	if cfg.Provider.Type != "local" {
		t.Errorf("Provider.Type = %q, want %q", cfg.Provider.Type, "local")
	}
	if cfg.Provider.Launcher != "single-node" {
		t.Errorf("Provider.Launcher = %q, want %q", cfg.Provider.Launcher, "single-node")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Label != Default().Provider.Label {
		t.Errorf("Provider.Label = %q, want default", cfg.Provider.Label)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
[channel]
type = "ssh"
host = "login.cluster"
port = 2222
user = "alice"
identity_files = ["/keys/id_ed25519"]
strict_host_key = false
connect_timeout = "3s"
work_dir = "/scratch/alice"
script_dir = "/scratch/alice/scripts"

[channel.env]
OMP_NUM_THREADS = "4"

[provider]
type = "slurm"
label = "sim"
nodes_per_block = 2
tasks_per_node = 8
init_blocks = 1
max_blocks = 4
walltime = "01:30:00"
launcher = "srun"
cmd_timeout = "30s"
partition = "debug"

[audit]
dir = "/var/log/forage-blocks"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Channel.Host != "login.cluster" || cfg.Channel.Port != 2222 {
		t.Errorf("Channel = %s:%d, want login.cluster:2222", cfg.Channel.Host, cfg.Channel.Port)
	}
	if cfg.Channel.StrictHostKey {
		t.Error("StrictHostKey should be false")
	}
	if cfg.Channel.ConnectTimeout.Duration != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want 3s", cfg.Channel.ConnectTimeout.Duration)
	}
	if cfg.Channel.Env["OMP_NUM_THREADS"] != "4" {
		t.Errorf("Env[OMP_NUM_THREADS] = %q, want %q", cfg.Channel.Env["OMP_NUM_THREADS"], "4")
	}
	if cfg.Provider.TasksPerNode != 8 {
		t.Errorf("TasksPerNode = %d, want 8", cfg.Provider.TasksPerNode)
	}
	if cfg.Provider.CmdTimeout.Duration != 30*time.Second {
		t.Errorf("CmdTimeout = %v, want 30s", cfg.Provider.CmdTimeout.Duration)
	}
	// Unset keys keep their defaults.
	if cfg.Provider.Parallelism != 1 {
		t.Errorf("Parallelism = %g, want 1", cfg.Provider.Parallelism)
	}
	if cfg.Audit.Dir != "/var/log/forage-blocks" {
		t.Errorf("Audit.Dir = %q", cfg.Audit.Dir)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "malformed toml",
			body:    "[channel\n",
			wantErr: "failed to parse config",
		},
		{
			name:    "unknown key",
			body:    "[provider]\nlabel = \"x\"\nnodes = 3\n",
			wantErr: "unknown keys",
		},
		{
			name:    "bad duration",
			body:    "[channel]\nconnect_timeout = \"soon\"\n",
			wantErr: "failed to parse config",
		},
		{
			name:    "ssh without host",
			body:    "[channel]\ntype = \"ssh\"\n",
			wantErr: "host is required",
		},
		{
			name:    "unknown launcher",
			body:    "[provider]\nlauncher = \"teleport\"\n",
			wantErr: "teleport",
		},
		{
			name:    "bad walltime",
			body:    "[provider]\nwalltime = \"ten minutes\"\n",
			wantErr: "walltime",
		},
		{
			name:    "max below min",
			body:    "[provider]\nmin_blocks = 3\nmax_blocks = 1\n",
			wantErr: "max_blocks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		label   string
		wantErr bool
	}{
		{"blocks", false},
		{"Sim.v2_run-1", false},
		{"", true},
		{"-leading", true},
		{"has space", true},
		{"../escape", true},
		{strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			err := ValidateLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
		})
	}
}

func TestChannelConfig_ValidateEnvKeys(t *testing.T) {
	c := Default().Channel
	c.Env = map[string]string{"BAD-KEY": "x"}

	if err := c.Validate(); err == nil {
		t.Error("Validate() should reject invalid environment variable names")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != DefaultConfigFile {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultConfigFile)
	}

	t.Setenv(EnvConfigPath, "/etc/forage-blocks.toml")
	if got := ResolvePath(""); got != "/etc/forage-blocks.toml" {
		t.Errorf("ResolvePath(\"\") = %q, want env value", got)
	}
	if got := ResolvePath("mine.toml"); got != "mine.toml" {
		t.Errorf("ResolvePath(flag) = %q, want %q", got, "mine.toml")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/.ssh/known_hosts"); got != filepath.Join(home, ".ssh/known_hosts") {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome() = %q, want unchanged", got)
	}
}
