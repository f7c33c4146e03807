package channel

import (
	"sort"

	"github.com/kballard/go-shellquote"
)

// mergeEnv overlays override on base. Keys in override win.
func mergeEnv(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// envPairs renders env as sorted KEY=VALUE strings.
func envPairs(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + env[k]
	}
	return pairs
}

// withEnvPrefix wraps a shell command so it sees env. The command runs under
// its own sh so variable references expand after env has applied.
func withEnvPrefix(cmd string, env map[string]string) string {
	if len(env) == 0 {
		return cmd
	}
	return "env " + shellquote.Join(envPairs(env)...) + " sh -c " + shellquote.Join(cmd)
}

// inDir prefixes cmd with a cd into dir.
func inDir(dir, cmd string) string {
	if dir == "" || dir == "." {
		return cmd
	}
	return "cd " + shellquote.Join(dir) + " && " + cmd
}
