package config

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

// Module provides the process Config, sourced from the "config_file" CLI
// flag threaded in via fx.Provide at wiring time in cmd/server, and a
// Reloadable kept current by a Watcher for as long as a config file path
// was given.
var Module = fx.Module(
	"config",

	fx.Provide(
		func(c *cli.Context) (*Config, error) {
			return LoadConfig(c.String("config_file"))
		},
		func(cfg *Config) *Reloadable {
			r := &Reloadable{}
			r.snapshot(cfg)
			return r
		},
	),

	fx.Invoke(registerWatcher),
)

func registerWatcher(lc fx.Lifecycle, c *cli.Context, reloadable *Reloadable, logger *slog.Logger) {
	path := c.String("config_file")
	if path == "" {
		return
	}

	var watcher *Watcher
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w, err := NewWatcher(path, reloadable, logger)
			if err != nil {
				logger.Warn("config: live reload disabled", "err", err)
				return nil
			}
			watcher = w
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if watcher == nil {
				return nil
			}
			return watcher.Close()
		},
	})
}
