// Package seed parses seed command flags and populates the development
// database with synthetic runs.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	entrypoint "github.com/louisbranch/ontogenic.space/internal/platform/cmd"
	"github.com/louisbranch/ontogenic.space/internal/seed"
	"github.com/louisbranch/ontogenic.space/internal/seed/generator"
)

// Config holds seed command configuration.
type Config struct {
	SeedConfig seed.Config
	List       bool
}

type envConfig struct {
	DBPath string `env:"ONTOGENIC_SPACE_DB_PATH"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	seedCfg := seed.DefaultConfig()

	var envCfg envConfig
	if err := entrypoint.ParseConfig(&envCfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(envCfg.DBPath) != "" {
		seedCfg.DBPath = envCfg.DBPath
	}

	var list bool
	var preset string

	fs.StringVar(&seedCfg.DBPath, "db-path", seedCfg.DBPath, "Path to the run store sqlite database")
	fs.StringVar(&preset, "preset", string(seedCfg.Preset), "generation preset (demo, cohort, longitudinal, stress-test)")
	fs.Int64Var(&seedCfg.Seed, "seed", 0, "random seed for reproducibility (0 = random)")
	fs.IntVar(&seedCfg.Users, "users", 0, "number of users to generate (0 = use preset default)")
	fs.IntVar(&seedCfg.Runs, "runs", 0, "runs per user (0 = use preset range)")
	fs.StringVar(&seedCfg.Scenario, "scenario", "", "run a Lua scenario script instead of a preset")
	fs.BoolVar(&seedCfg.Verbose, "v", false, "verbose output")
	fs.BoolVar(&list, "list", false, "list available presets and personas")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	seedCfg.Preset = generator.Preset(preset)
	return Config{SeedConfig: seedCfg, List: list}, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	if cfg.List {
		fmt.Fprintln(out, "Available presets:")
		fmt.Fprintln(out, "  demo         - 3 users with a few runs each")
		fmt.Fprintln(out, "  cohort       - 8 users across mixed pass counts")
		fmt.Fprintln(out, "  longitudinal - 2 users with long run histories")
		fmt.Fprintln(out, "  stress-test  - 50 minimal users")
		fmt.Fprintln(out, "\nAvailable personas (for scenario scripts):")
		for _, persona := range generator.Personas() {
			fmt.Fprintf(out, "  %s\n", persona.Name)
		}
		return nil
	}

	if strings.TrimSpace(cfg.SeedConfig.Scenario) == "" {
		if err := validatePreset(cfg.SeedConfig.Preset); err != nil {
			return err
		}
	}
	return seed.Run(ctx, cfg.SeedConfig)
}

func validatePreset(preset generator.Preset) error {
	validPresets := []generator.Preset{
		generator.PresetDemo,
		generator.PresetCohort,
		generator.PresetLongitudinal,
		generator.PresetStressTest,
	}
	for _, p := range validPresets {
		if preset == p {
			return nil
		}
	}
	return fmt.Errorf("unknown preset %q (valid presets: demo, cohort, longitudinal, stress-test)", preset)
}
