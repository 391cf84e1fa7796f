// Package seed populates the run store with synthetic survey data for
// development and demos. Generation is driven either by a named preset
// or by a Lua scenario script.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/seed/generator"
	"github.com/louisbranch/ontogenic.space/internal/seed/scenario"
)

// Config holds seed runner configuration.
type Config struct {
	DBPath   string
	Preset   generator.Preset
	Seed     int64
	Users    int
	Runs     int
	Scenario string // Path to a Lua scenario script; overrides the preset
	Verbose  bool
}

// DefaultConfig returns configuration with common defaults.
func DefaultConfig() Config {
	base := generator.DefaultConfig()
	return Config{
		DBPath: base.DBPath,
		Preset: base.Preset,
	}
}

// Run seeds the run store from the configured preset or scenario script.
func Run(ctx context.Context, cfg Config) error {
	gen, err := generator.New(generator.Config{
		DBPath:  cfg.DBPath,
		Preset:  cfg.Preset,
		Seed:    cfg.Seed,
		Users:   cfg.Users,
		Runs:    cfg.Runs,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return err
	}
	defer gen.Close()

	if path := strings.TrimSpace(cfg.Scenario); path != "" {
		scn, err := scenario.Load(path)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "Loaded scenario %q\n", scn.Name)
		}
		return gen.RunScenario(ctx, scn)
	}

	return gen.Run(ctx)
}
