// Package config provides configuration types and loading for forage-blocks.
//
// # Configuration File
//
// Configuration is a single TOML file. The location is taken from --config,
// then $FORAGE_BLOCKS_CONFIG, then ./forage-blocks.toml. A missing file is
// not an error: Default() is used, which runs a local channel with a local
// provider and the single-node launcher.
//
//	[channel]
//	type = "ssh"
//	host = "login.cluster"
//	user = "alice"
//	identity_files = ["~/.ssh/id_ed25519"]
//	known_hosts = "~/.ssh/known_hosts"
//
//	[provider]
//	type = "slurm"
//	label = "blocks"
//	nodes_per_block = 2
//	tasks_per_node = 4
//	max_blocks = 4
//	walltime = "01:00:00"
//	launcher = "srun"
//	partition = "debug"
//
// Keys that are not part of the schema are rejected so typos surface early.
//
// # Validation
//
// Load validates the decoded file:
//   - Channel type is local or ssh; ssh needs a host and a valid port
//   - Provider type is a known scheduler dialect or local
//   - Block geometry is positive and max_blocks >= min_blocks
//   - Walltime is HH:MM:SS and the launcher is registered
package config
