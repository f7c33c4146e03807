// Package app wires a channel, a launcher and a provider from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/launcher"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/ssh"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Channel runs commands on the configured endpoint
	Channel channel.Channel

	// Launcher wraps commands into blocks
	Launcher launcher.Launcher

	// Metrics collects job lifecycle metrics
	Metrics *metrics.Collector

	// Audit is the JSONL event log; nil when [audit] dir is unset
	Audit *audit.Logger

	fs        system.FileSystem
	observers provider.Observers
	provider  provider.Provider
}

// Option is a function that configures the App
type Option func(*App)

// WithChannel uses ch instead of connecting to the configured endpoint
func WithChannel(ch channel.Channel) Option {
	return func(a *App) {
		a.Channel = ch
	}
}

// WithFileSystem sets the file system used for local script copies
func WithFileSystem(fs system.FileSystem) Option {
	return func(a *App) {
		a.fs = fs
	}
}

// WithObserver adds an observer to the provider's lifecycle events
func WithObserver(o provider.Observer) Option {
	return func(a *App) {
		a.observers = append(a.observers, o)
	}
}

// New creates an App for cfg. The channel is opened unless one is supplied
// with WithChannel; the provider is built lazily by Provider.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	app := &App{
		Config:  cfg,
		Metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(app)
	}

	l, err := launcher.New(cfg.Provider.Launcher, cfg.Provider.Overrides)
	if err != nil {
		return nil, err
	}
	app.Launcher = l

	if cfg.Audit.Dir != "" {
		app.Audit = audit.NewLogger(cfg.Audit.Dir)
	}

	if app.Channel == nil {
		ch, err := OpenChannel(ctx, cfg.Channel)
		if err != nil {
			return nil, err
		}
		app.Channel = ch
	}

	return app, nil
}

// OpenChannel connects to the endpoint described by cc.
func OpenChannel(ctx context.Context, cc config.ChannelConfig) (channel.Channel, error) {
	var chOpts []channel.Option
	if cc.WorkDir != "" {
		chOpts = append(chOpts, channel.WithWorkDir(cc.WorkDir))
	}
	if cc.ScriptDir != "" {
		chOpts = append(chOpts, channel.WithScriptDir(cc.ScriptDir))
	}
	if len(cc.Env) > 0 {
		chOpts = append(chOpts, channel.WithEnv(cc.Env))
	}

	switch cc.Type {
	case config.ChannelLocal:
		return channel.NewLocalChannel(chOpts...)
	case config.ChannelSSH:
		return channel.NewRemoteChannel(ctx, SSHOptions(cc), chOpts...)
	default:
		return nil, fmt.Errorf("unknown channel type: %s", cc.Type)
	}
}

// SSHOptions translates a channel config into SSH connection options.
func SSHOptions(cc config.ChannelConfig) ssh.Options {
	o := ssh.DefaultOptions(cc.Host).WithPort(cc.Port)
	if cc.User != "" {
		o = o.WithUser(cc.User)
	}
	if len(cc.IdentityFiles) > 0 {
		o = o.WithIdentityFiles(cc.IdentityFiles...)
	}
	if cc.KnownHosts != "" {
		o = o.WithKnownHosts(cc.KnownHosts)
	}
	if cc.ConnectTimeout.Duration > 0 {
		o = o.WithTimeout(cc.ConnectTimeout.Duration)
	}
	o.StrictHostKeyCheck = cc.StrictHostKey
	return o
}

// ProviderOptions translates the provider config into provider options.
func (a *App) ProviderOptions() (provider.Options, error) {
	pc := a.Config.Provider
	walltime, err := provider.ParseWalltime(pc.Walltime)
	if err != nil {
		return provider.Options{}, err
	}

	observers := provider.Observers{a.Metrics}
	if a.Audit != nil {
		observers = append(observers, a.Audit)
	}
	observers = append(observers, a.observers...)

	return provider.Options{
		Label:         pc.Label,
		NodesPerBlock: pc.NodesPerBlock,
		TasksPerNode:  pc.TasksPerNode,
		InitBlocks:    pc.InitBlocks,
		MinBlocks:     pc.MinBlocks,
		MaxBlocks:     pc.MaxBlocks,
		Parallelism:   pc.Parallelism,
		Walltime:      walltime,
		Launcher:      a.Launcher,
		CmdTimeout:    pc.CmdTimeout.Duration,
		ScriptDir:     pc.ScriptDir,
		Partition:     pc.Partition,
		Queue:         pc.Queue,
		Account:       pc.Account,
		Overrides:     pc.Overrides,
		Observer:      observers,
		FileSystem:    a.fs,
	}, nil
}

// Provider returns the configured provider, building it on first use.
func (a *App) Provider() (provider.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	opts, err := a.ProviderOptions()
	if err != nil {
		return nil, err
	}
	p, err := provider.New(a.Config.Provider.Type, a.Channel, opts)
	if err != nil {
		return nil, err
	}
	a.provider = p
	return p, nil
}

// Close releases the channel. It reports whether the channel was open.
func (a *App) Close() bool {
	if a.Channel == nil {
		return false
	}
	closed, err := a.Channel.Close()
	if err != nil {
		logging.Warn("failed to close channel", "host", a.Channel.Host(), "error", err)
	}
	return closed
}
