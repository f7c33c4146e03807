package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
)

// appOptions are applied to every App a command opens. Tests use it to
// inject a mock channel.
var appOptions []app.Option

// loadConfig reads the config file selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return nil, errors.ConfigError("failed to load config", err)
	}
	return cfg, nil
}

// openApp loads the config and opens its channel.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, appOptions...)
}

// commandAfterDash returns the words after "--", or an error naming usage.
func commandAfterDash(cmd *cobra.Command, args []string) ([]string, error) {
	at := cmd.ArgsLenAtDash()
	if at < 0 || at >= len(args) {
		return nil, errors.ValidationError("usage: " + cmd.UseLine())
	}
	return args[at:], nil
}

// parseEnv turns K=V pairs into a map.
func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, errors.ValidationError(fmt.Sprintf("invalid environment variable %q (want KEY=VALUE)", p))
		}
		env[k] = v
	}
	return env, nil
}

func boolStatus(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
