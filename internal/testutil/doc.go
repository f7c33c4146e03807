// Package testutil provides test fixtures and utilities.
//
// This package contains embedded TOML fixtures and a TestEnv that writes a
// config file and wires mocks into an app.App.
//
// # Fixtures
//
// TOML fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml    // local channel, local provider
//	fixtures/slurm_config.toml    // ssh channel, slurm provider
//	fixtures/invalid_config.toml  // fails Validate
//
// Helper functions decode them over config.Default():
//
//	cfg, err := testutil.ValidConfig()
//	cfg, err := testutil.SlurmConfig()
//	cfg, err := testutil.InvalidConfig()
//
// # Test Environment
//
//	env := testutil.NewTestEnv(t)
//	env.WriteConfig(func(c *config.Config) { c.Provider.Launcher = "simple" })
//	env.Channel.SetExecResult("squeue", channel.ExecResult{Stdout: "42 R\n"})
//	a := env.NewApp()
//
// ConfigPath can be passed to the CLI with --config; AppOptions returns the
// options that route an App through the mock channel and file system.
package testutil
