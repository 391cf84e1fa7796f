package om

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/ontogenic.space/internal/survey"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("om", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"run"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Command != "run" {
		t.Errorf("command = %q, want run", cfg.Command)
	}
	if cfg.Model != "all" {
		t.Errorf("model = %q, want all", cfg.Model)
	}
	if cfg.Passes != 3 {
		t.Errorf("passes = %d, want 3", cfg.Passes)
	}
	if cfg.Responses != "" {
		t.Errorf("responses = %q, want empty", cfg.Responses)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("om", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"score", "-r", `{"pad_valence_1":7}`, "-locale", "pt"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Command != "score" {
		t.Errorf("command = %q, want score", cfg.Command)
	}
	if cfg.Responses != `{"pad_valence_1":7}` {
		t.Errorf("responses = %q", cfg.Responses)
	}
	if cfg.Locale != "pt" {
		t.Errorf("locale = %q, want pt", cfg.Locale)
	}
}

func TestParseConfigShorthands(t *testing.T) {
	fs := flag.NewFlagSet("om", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"run", "-p", "5", "-seed", "42", "-r", "-"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Passes != 5 {
		t.Errorf("passes = %d, want 5", cfg.Passes)
	}
	if cfg.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Seed)
	}
	if cfg.Responses != "-" {
		t.Errorf("responses = %q, want -", cfg.Responses)
	}
}

func TestParseConfigWithoutCommand(t *testing.T) {
	fs := flag.NewFlagSet("om", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Command != "" {
		t.Errorf("command = %q, want empty", cfg.Command)
	}
}

func TestRunRequiresCommand(t *testing.T) {
	err := Run(context.Background(), Config{}, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error without a command")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := Run(context.Background(), Config{Command: "dance"}, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "dance") {
		t.Errorf("error %q does not name the command", err)
	}
}

func TestRunSchema(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Command: "schema", Model: "state"}

	if err := Run(context.Background(), cfg, nil, &out, nil); err != nil {
		t.Fatalf("run schema: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode schema output: %v", err)
	}
	if doc["title"] != "State" {
		t.Errorf("schema title = %v, want State", doc["title"])
	}
}

func TestRunSchemaRejectsUnknownModel(t *testing.T) {
	cfg := Config{Command: "schema", Model: "cosmology"}
	if err := Run(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestRunSurvey(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Command: "survey"}

	if err := Run(context.Background(), cfg, nil, &out, nil); err != nil {
		t.Fatalf("run survey: %v", err)
	}

	var got survey.Survey
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode survey output: %v", err)
	}
	if got.ID != survey.DefaultSurveyID {
		t.Errorf("survey id = %q, want %q", got.ID, survey.DefaultSurveyID)
	}
	if len(got.Items) != 15 {
		t.Errorf("survey items = %d, want 15", len(got.Items))
	}
}

func TestRunScoreInlineResponses(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Command: "score", Responses: `{"pad_valence_1":7}`}

	if err := Run(context.Background(), cfg, nil, &out, nil); err != nil {
		t.Fatalf("run score: %v", err)
	}

	var scores map[string]float64
	if err := json.Unmarshal(out.Bytes(), &scores); err != nil {
		t.Fatalf("decode score output: %v", err)
	}
	if scores["valence"] != 1 {
		t.Errorf("valence = %v, want 1", scores["valence"])
	}
}

func TestRunScoreFromStdin(t *testing.T) {
	for _, value := range []string{"", "-"} {
		var out bytes.Buffer
		in := strings.NewReader(`{"pad_arousal_1":1}`)
		cfg := Config{Command: "score", Responses: value}

		if err := Run(context.Background(), cfg, in, &out, nil); err != nil {
			t.Fatalf("run score with responses %q: %v", value, err)
		}

		var scores map[string]float64
		if err := json.Unmarshal(out.Bytes(), &scores); err != nil {
			t.Fatalf("decode score output: %v", err)
		}
		if scores["arousal"] != -1 {
			t.Errorf("arousal = %v, want -1", scores["arousal"])
		}
	}
}

func TestRunScoreFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.json")
	if err := os.WriteFile(path, []byte(`{"e_extraversion":7}`), 0o600); err != nil {
		t.Fatalf("write responses file: %v", err)
	}

	var out bytes.Buffer
	cfg := Config{Command: "score", Responses: path}

	if err := Run(context.Background(), cfg, nil, &out, nil); err != nil {
		t.Fatalf("run score: %v", err)
	}

	var scores map[string]float64
	if err := json.Unmarshal(out.Bytes(), &scores); err != nil {
		t.Fatalf("decode score output: %v", err)
	}
	if scores["extraversion"] != 1 {
		t.Errorf("extraversion = %v, want 1", scores["extraversion"])
	}
}

func TestRunScoreMissingFile(t *testing.T) {
	cfg := Config{Command: "score", Responses: filepath.Join(t.TempDir(), "absent.json")}
	if err := Run(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing responses file")
	}
}

func TestRunPlace(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Command: "place", Responses: `{"pad_valence_1":7,"pad_arousal_1":4}`}

	if err := Run(context.Background(), cfg, nil, &out, nil); err != nil {
		t.Fatalf("run place: %v", err)
	}

	var placement survey.Placement
	if err := json.Unmarshal(out.Bytes(), &placement); err != nil {
		t.Fatalf("decode place output: %v", err)
	}
	if placement.Coords3D[0] != 1 {
		t.Errorf("valence coord = %v, want 1", placement.Coords3D[0])
	}
	if placement.Coords3D[1] != 0 {
		t.Errorf("arousal coord = %v, want 0", placement.Coords3D[1])
	}
	if placement.Axes[0] != "valence" {
		t.Errorf("axes = %v", placement.Axes)
	}
}

func TestRunMachine(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{
		Command:   "run",
		Responses: `{"pad_valence_1":6,"pad_arousal_1":5,"o_curiosity":7}`,
		Passes:    2,
		Seed:      7,
	}

	if err := Run(context.Background(), cfg, nil, &out, nil); err != nil {
		t.Fatalf("run machine: %v", err)
	}

	var outcome struct {
		Scores   map[string]float64 `json:"scores"`
		History  []string           `json:"history"`
		Pipeline struct {
			SurveyID string `json:"survey_id"`
			Passes   int    `json:"passes"`
		} `json:"pipeline"`
	}
	if err := json.Unmarshal(out.Bytes(), &outcome); err != nil {
		t.Fatalf("decode run output: %v", err)
	}
	if outcome.Pipeline.SurveyID != survey.DefaultSurveyID {
		t.Errorf("survey id = %q", outcome.Pipeline.SurveyID)
	}
	if outcome.Pipeline.Passes != 2 {
		t.Errorf("passes = %d, want 2", outcome.Pipeline.Passes)
	}
	if len(outcome.History) == 0 {
		t.Error("expected non-empty history")
	}
	if len(outcome.Scores) == 0 {
		t.Error("expected non-empty scores")
	}
}

func TestRunMachineDeterministicWithSeed(t *testing.T) {
	cfg := Config{
		Command:   "run",
		Responses: `{"pad_valence_1":6,"n_neuroticism":2}`,
		Passes:    3,
		Seed:      99,
	}

	var first, second bytes.Buffer
	if err := Run(context.Background(), cfg, nil, &first, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Run(context.Background(), cfg, nil, &second, nil); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.String() != second.String() {
		t.Error("seeded runs produced different output")
	}
}

func TestRunMachineRejectsInvalidPasses(t *testing.T) {
	cfg := Config{Command: "run", Responses: `{"pad_valence_1":4}`, Passes: 25}
	if err := Run(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error for passes above the limit")
	}
}
