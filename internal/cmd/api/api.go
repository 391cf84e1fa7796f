// Package api parses api command flags and starts the run service HTTP API.
package api

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/ontogenic.space/internal/platform/cmd"
	server "github.com/louisbranch/ontogenic.space/internal/services/api"
)

// Config holds api command configuration.
type Config struct {
	Port   int    `env:"ONTOGENIC_SPACE_API_PORT" envDefault:"8080"`
	Addr   string `env:"ONTOGENIC_SPACE_API_ADDR"`
	DBPath string `env:"ONTOGENIC_SPACE_DB_PATH"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The api server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The api server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the run store sqlite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the run service HTTP API.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAPI, func(ctx context.Context) error {
		addr := cfg.Addr
		if addr == "" {
			addr = fmt.Sprintf(":%d", cfg.Port)
		}
		return server.RunWithOptions(ctx, server.Options{Addr: addr, DBPath: cfg.DBPath})
	})
}
