package seed

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/ontogenic.space/internal/seed/generator"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SeedConfig.Preset != generator.PresetDemo {
		t.Errorf("preset = %q, want demo", cfg.SeedConfig.Preset)
	}
	if want := filepath.Join("data", "ontogenic.db"); cfg.SeedConfig.DBPath != want {
		t.Errorf("db path = %q, want %q", cfg.SeedConfig.DBPath, want)
	}
	if cfg.List {
		t.Error("expected list disabled by default")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-db-path", "/tmp/seed.db",
		"-preset", "cohort",
		"-seed", "42",
		"-users", "4",
		"-runs", "2",
		"-scenario", "intake.lua",
		"-v",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SeedConfig.DBPath != "/tmp/seed.db" {
		t.Errorf("db path = %q", cfg.SeedConfig.DBPath)
	}
	if cfg.SeedConfig.Preset != generator.PresetCohort {
		t.Errorf("preset = %q, want cohort", cfg.SeedConfig.Preset)
	}
	if cfg.SeedConfig.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.SeedConfig.Seed)
	}
	if cfg.SeedConfig.Users != 4 {
		t.Errorf("users = %d, want 4", cfg.SeedConfig.Users)
	}
	if cfg.SeedConfig.Runs != 2 {
		t.Errorf("runs = %d, want 2", cfg.SeedConfig.Runs)
	}
	if cfg.SeedConfig.Scenario != "intake.lua" {
		t.Errorf("scenario = %q", cfg.SeedConfig.Scenario)
	}
	if !cfg.SeedConfig.Verbose {
		t.Error("expected verbose enabled")
	}
}

func TestParseConfigReadsDBPathFromEnv(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", "/tmp/env-seed.db")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SeedConfig.DBPath != "/tmp/env-seed.db" {
		t.Errorf("db path = %q, want env value", cfg.SeedConfig.DBPath)
	}
}

func TestRunList(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{List: true}

	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run list: %v", err)
	}

	got := out.String()
	for _, want := range []string{"demo", "cohort", "longitudinal", "stress-test", "baseline_neutral", "steady_optimist"} {
		if !strings.Contains(got, want) {
			t.Errorf("list output missing %q:\n%s", want, got)
		}
	}
}

func TestRunRejectsUnknownPreset(t *testing.T) {
	cfg := Config{}
	cfg.SeedConfig.Preset = "carnival"

	err := Run(context.Background(), cfg, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "carnival") {
		t.Errorf("error %q does not name the preset", err)
	}
}

func TestRunSeedsPreset(t *testing.T) {
	cfg := Config{}
	cfg.SeedConfig.DBPath = filepath.Join(t.TempDir(), "seed.db")
	cfg.SeedConfig.Preset = generator.PresetDemo
	cfg.SeedConfig.Seed = 9
	cfg.SeedConfig.Users = 1
	cfg.SeedConfig.Runs = 1

	if err := Run(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("run seed: %v", err)
	}
}
