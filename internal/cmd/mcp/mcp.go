// Package mcp parses mcp command flags and starts the MCP server.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/ontogenic.space/internal/platform/cmd"
	"github.com/louisbranch/ontogenic.space/internal/services/mcp/service"
)

// Config holds mcp command configuration.
type Config struct {
	DBPath    string `env:"ONTOGENIC_SPACE_DB_PATH"`
	Transport string `env:"ONTOGENIC_SPACE_MCP_TRANSPORT" envDefault:"stdio"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the run store sqlite database")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "The MCP transport (stdio)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return service.Run(ctx, service.Config{
			DBPath:    cfg.DBPath,
			Transport: service.TransportKind(cfg.Transport),
		})
	})
}
