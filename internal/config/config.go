package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/launcher"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

// labelRegex validates provider labels.
// Labels end up in job names and script file names, so they must start with a
// letter or digit and contain only letters, digits, dots, underscores, or hyphens.
var labelRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,62}$`)

// envKeyRegex validates environment variable names in [channel.env].
var envKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	// EnvConfigPath overrides the default config file location.
	EnvConfigPath = "FORAGE_BLOCKS_CONFIG"

	// DefaultConfigFile is used when neither --config nor $FORAGE_BLOCKS_CONFIG is set.
	DefaultConfigFile = "forage-blocks.toml"

	ChannelLocal = "local"
	ChannelSSH   = "ssh"
)

// ProviderTypes lists the accepted [provider] type values.
var ProviderTypes = []string{"local", "slurm", "torque", "gridengine", "condor", "cobalt"}

// Duration decodes Go duration strings such as "10s" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the top-level forage-blocks configuration
type Config struct {
	Channel  ChannelConfig  `toml:"channel"`
	Provider ProviderConfig `toml:"provider"`
	Audit    AuditConfig    `toml:"audit"`
}

// ChannelConfig describes where commands run
type ChannelConfig struct {
	Type           string            `toml:"type"`
	Host           string            `toml:"host"`
	Port           int               `toml:"port"`
	User           string            `toml:"user"`
	IdentityFiles  []string          `toml:"identity_files"`
	KnownHosts     string            `toml:"known_hosts"`
	StrictHostKey  bool              `toml:"strict_host_key"`
	ConnectTimeout Duration          `toml:"connect_timeout"`
	WorkDir        string            `toml:"work_dir"`
	ScriptDir      string            `toml:"script_dir"`
	Env            map[string]string `toml:"env"`
}

// ProviderConfig describes how blocks are requested
type ProviderConfig struct {
	Type          string   `toml:"type"`
	Label         string   `toml:"label"`
	NodesPerBlock int      `toml:"nodes_per_block"`
	TasksPerNode  int      `toml:"tasks_per_node"`
	InitBlocks    int      `toml:"init_blocks"`
	MinBlocks     int      `toml:"min_blocks"`
	MaxBlocks     int      `toml:"max_blocks"`
	Parallelism   float64  `toml:"parallelism"`
	Walltime      string   `toml:"walltime"`
	Launcher      string   `toml:"launcher"`
	CmdTimeout    Duration `toml:"cmd_timeout"`
	ScriptDir     string   `toml:"script_dir"`
	Partition     string   `toml:"partition"`
	Queue         string   `toml:"queue"`
	Account       string   `toml:"account"`
	Overrides     string   `toml:"overrides"`
}

// AuditConfig controls the JSONL job lifecycle log
type AuditConfig struct {
	Dir string `toml:"dir"`
}

// Default returns the configuration used when no file is present:
// a local channel, a local provider and the single-node launcher.
func Default() *Config {
	return &Config{
		Channel: ChannelConfig{
			Type:           ChannelLocal,
			Port:           22,
			StrictHostKey:  true,
			ConnectTimeout: Duration{10 * time.Second},
			WorkDir:        ".",
		},
		Provider: ProviderConfig{
			Type:          "local",
			Label:         "blocks",
			NodesPerBlock: 1,
			TasksPerNode:  1,
			InitBlocks:    1,
			MinBlocks:     0,
			MaxBlocks:     10,
			Parallelism:   1,
			Walltime:      "00:10:00",
			Launcher:      "single-node",
			CmdTimeout:    Duration{10 * time.Second},
			ScriptDir:     filepath.Join(".forage-blocks", "scripts"),
		},
	}
}

// ResolvePath picks the config file location: the explicit flag value,
// then $FORAGE_BLOCKS_CONFIG, then ./forage-blocks.toml.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigFile
}

// Load reads a TOML config file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.Channel.expandPaths()
	return cfg, nil
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	return nil
}

// Validate checks that the ChannelConfig is valid.
func (c *ChannelConfig) Validate() error {
	switch c.Type {
	case ChannelLocal:
	case ChannelSSH:
		if c.Host == "" {
			return fmt.Errorf("host is required for ssh channels")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535 (got %d)", c.Port)
		}
	default:
		return fmt.Errorf("invalid type: %s (must be local or ssh)", c.Type)
	}

	if c.ConnectTimeout.Duration < 0 {
		return fmt.Errorf("connect_timeout must not be negative")
	}

	for k := range c.Env {
		if !envKeyRegex.MatchString(k) {
			return fmt.Errorf("invalid environment variable name %q", k)
		}
	}
	return nil
}

// Validate checks that the ProviderConfig is valid.
func (p *ProviderConfig) Validate() error {
	if err := ValidateLabel(p.Label); err != nil {
		return err
	}

	known := false
	for _, t := range ProviderTypes {
		if p.Type == t {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid type: %s (must be one of %s)", p.Type, strings.Join(ProviderTypes, ", "))
	}

	if p.NodesPerBlock < 1 {
		return fmt.Errorf("nodes_per_block must be at least 1 (got %d)", p.NodesPerBlock)
	}
	if p.TasksPerNode < 1 {
		return fmt.Errorf("tasks_per_node must be at least 1 (got %d)", p.TasksPerNode)
	}
	if p.MinBlocks < 0 || p.InitBlocks < 0 {
		return fmt.Errorf("min_blocks and init_blocks must not be negative")
	}
	if p.MaxBlocks < p.MinBlocks {
		return fmt.Errorf("max_blocks (%d) must be >= min_blocks (%d)", p.MaxBlocks, p.MinBlocks)
	}
	if p.Parallelism < 0 || p.Parallelism > 1 {
		return fmt.Errorf("parallelism must be between 0 and 1 (got %g)", p.Parallelism)
	}
	if _, err := provider.ParseWalltime(p.Walltime); err != nil {
		return err
	}
	if _, err := launcher.Lookup(p.Launcher); err != nil {
		return err
	}
	if p.CmdTimeout.Duration <= 0 {
		return fmt.Errorf("cmd_timeout must be positive")
	}
	return nil
}

// ValidateLabel checks if a provider label is valid.
func ValidateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if !labelRegex.MatchString(label) {
		return fmt.Errorf("invalid label %q: must start with a letter or digit, contain only letters, digits, dots, underscores, or hyphens, and be at most 63 characters", label)
	}
	return nil
}

func (c *ChannelConfig) expandPaths() {
	for i, f := range c.IdentityFiles {
		c.IdentityFiles[i] = expandHome(f)
	}
	c.KnownHosts = expandHome(c.KnownHosts)
}

// expandHome replaces a leading "~/" with the current user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
