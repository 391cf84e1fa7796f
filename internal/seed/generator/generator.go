// Package generator produces synthetic survey runs for seeding the
// development database with diverse profile data.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/seed/scenario"
	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit"
	runsqlite "github.com/louisbranch/ontogenic.space/internal/services/run/storage/sqlite"
	"github.com/louisbranch/ontogenic.space/internal/survey"
)

// Config holds configuration for the generator.
type Config struct {
	DBPath  string
	Preset  Preset
	Seed    int64
	Users   int // Override preset's user count (0 = use preset default)
	Runs    int // Override preset's runs-per-user range (0 = use preset range)
	Verbose bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:  filepath.Join("data", "ontogenic.db"),
		Preset:  PresetDemo,
		Seed:    0,
		Verbose: false,
	}
}

// Generator orchestrates synthetic run generation. It writes through
// the run domain service so seeded data takes the same scoring,
// pipeline, and audit path as real submissions.
type Generator struct {
	config     Config
	rng        *rand.Rand
	instrument survey.Survey
	store      *runsqlite.Store
	service    *rundomain.Service
}

// New creates a new Generator writing to the run store at cfg.DBPath.
func New(cfg Config) (*Generator, error) {
	rng := NewSeededRNG(cfg.Seed, cfg.Verbose)

	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Opening run store at %s...\n", cfg.DBPath)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := runsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open run sqlite store: %w", err)
	}

	return &Generator{
		config:     cfg,
		rng:        rng,
		instrument: survey.Build(""),
		store:      store,
		service:    rundomain.NewService(store, audit.NewEmitter(store), rundomain.Config{}),
	}, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	if g.store != nil {
		return g.store.Close()
	}
	return nil
}

// Run executes the generation based on the configured preset.
func (g *Generator) Run(ctx context.Context) error {
	presetCfg := GetPresetConfig(g.config.Preset)

	// Override user count if specified
	numUsers := presetCfg.Users
	if g.config.Users > 0 {
		numUsers = g.config.Users
	}
	if g.config.Runs > 0 {
		presetCfg.RunsPerUserMin = g.config.Runs
		presetCfg.RunsPerUserMax = g.config.Runs
	}

	if g.config.Verbose {
		fmt.Fprintf(os.Stderr, "Running preset %q: %d user(s)\n",
			g.config.Preset, numUsers)
	}

	total := 0
	for i := 0; i < numUsers; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := g.generateUser(ctx, i, presetCfg)
		if err != nil {
			return fmt.Errorf("generate user %d: %w", i+1, err)
		}
		total += count
	}

	if g.config.Verbose {
		fmt.Fprintf(os.Stderr, "Generation complete: %d run(s) across %d user(s)\n",
			total, numUsers)
	}
	return nil
}

// generateUser seeds all runs for a single synthetic user.
func (g *Generator) generateUser(ctx context.Context, index int, cfg PresetConfig) (int, error) {
	userID := userHandle(index)
	persona := g.pickPersona(cfg.VaryPersonas, index)

	numRuns := g.randomRange(cfg.RunsPerUserMin, cfg.RunsPerUserMax)
	for i := 0; i < numRuns; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		passes := g.randomRange(cfg.PassesMin, cfg.PassesMax)
		responses := persona.Responses(g.instrument, g.rng, cfg.Jitter)
		seed := g.rng.Int63()
		notes := ""
		if cfg.IncludeNotes {
			notes = fmt.Sprintf(noteTemplates[g.rng.Intn(len(noteTemplates))], persona.Name)
		}

		created, err := g.service.CreateRun(ctx, rundomain.CreateInput{
			UserID:    userID,
			Responses: responses,
			Passes:    passes,
			Notes:     notes,
			Seed:      &seed,
		})
		if err != nil {
			return i, fmt.Errorf("create run %d for %s: %w", i+1, userID, err)
		}

		if g.config.Verbose {
			fmt.Fprintf(os.Stderr, "  Created run %s: user=%s persona=%s passes=%d\n",
				created.Record.ID, userID, persona.Name, passes)
		}
	}
	return numRuns, nil
}

// pickPersona selects a persona based on configuration.
func (g *Generator) pickPersona(vary bool, index int) Persona {
	if !vary {
		return personas[0]
	}
	return personas[index%len(personas)]
}

// randomRange returns a random number in [min, max].
func (g *Generator) randomRange(min, max int) int {
	if min >= max {
		return min
	}
	return min + g.rng.Intn(max-min+1)
}

// scenarioCursor tracks identity and answer state while scenario steps
// execute in order.
type scenarioCursor struct {
	userID    string
	persona   Persona
	jitter    float64
	responses map[string]int
}

// RunScenario interprets a loaded scenario script. User and persona
// steps move the cursor; explicit responses stick until the next
// persona step switches back to generated answers.
func (g *Generator) RunScenario(ctx context.Context, scn *scenario.Scenario) error {
	if scn == nil {
		return fmt.Errorf("scenario is nil")
	}

	if g.config.Verbose {
		fmt.Fprintf(os.Stderr, "Running scenario %q: %d step(s)\n", scn.Name, len(scn.Steps))
	}

	cursor := scenarioCursor{persona: personas[0]}
	for i, step := range scn.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.applyStep(ctx, &cursor, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
		}
	}

	if g.config.Verbose {
		fmt.Fprintf(os.Stderr, "Scenario %q complete\n", scn.Name)
	}
	return nil
}

func (g *Generator) applyStep(ctx context.Context, cursor *scenarioCursor, step scenario.Step) error {
	switch step.Kind {
	case scenario.StepUser:
		id, _ := step.Args["id"].(string)
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("user step requires an id")
		}
		cursor.userID = id
		return nil

	case scenario.StepPersona:
		name, _ := step.Args["name"].(string)
		persona, ok := PersonaByName(name)
		if !ok {
			return fmt.Errorf("persona %q is not defined", name)
		}
		cursor.persona = persona
		if jitter, ok := floatArg(step.Args["jitter"]); ok {
			cursor.jitter = jitter
		}
		cursor.responses = nil
		return nil

	case scenario.StepResponses:
		responses := make(map[string]int, len(step.Args))
		for key, value := range step.Args {
			response, ok := intArg(value)
			if !ok {
				return fmt.Errorf("response %q must be an integer", key)
			}
			responses[key] = response
		}
		cursor.responses = responses
		return nil

	case scenario.StepRun:
		return g.runStep(ctx, cursor, step.Args)

	default:
		return fmt.Errorf("step kind %q is not supported", step.Kind)
	}
}

// runStep executes one run for the cursor's user.
func (g *Generator) runStep(ctx context.Context, cursor *scenarioCursor, args map[string]any) error {
	if cursor.userID == "" {
		return fmt.Errorf("run step requires a preceding user step")
	}

	responses := cursor.responses
	if responses == nil {
		responses = cursor.persona.Responses(g.instrument, g.rng, cursor.jitter)
	}

	passes := 0
	if value, ok := intArg(args["passes"]); ok {
		passes = value
	}
	notes, _ := args["notes"].(string)

	seed := g.rng.Int63()
	if value, ok := intArg(args["seed"]); ok {
		seed = int64(value)
	}

	created, err := g.service.CreateRun(ctx, rundomain.CreateInput{
		UserID:    cursor.userID,
		Responses: responses,
		Passes:    passes,
		Notes:     notes,
		Seed:      &seed,
	})
	if err != nil {
		return fmt.Errorf("create run for %s: %w", cursor.userID, err)
	}

	if g.config.Verbose {
		fmt.Fprintf(os.Stderr, "  Created run %s: user=%s persona=%s\n",
			created.Record.ID, cursor.userID, cursor.persona.Name)
	}
	return nil
}

// intArg narrows a scenario argument to an int.
func intArg(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// floatArg narrows a scenario argument to a float64.
func floatArg(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
