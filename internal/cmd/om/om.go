// Package om parses om command arguments and executes the ontogenic
// machine CLI: schema, survey, score, place, and run commands.
package om

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	entrypoint "github.com/louisbranch/ontogenic.space/internal/platform/cmd"
	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/survey"
)

// Config holds om command configuration. Command is the first
// positional argument; the remaining fields come from flags.
type Config struct {
	Command   string
	Model     string
	Locale    string
	Responses string
	Passes    int
	Seed      int64
}

// ParseConfig parses the command name and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.Command = args[0]
		args = args[1:]
	}

	fs.StringVar(&cfg.Model, "model", "all", "schema model (state, survey, hypergraph, all)")
	fs.StringVar(&cfg.Locale, "locale", "", "locale for survey prompts and labels")
	fs.StringVar(&cfg.Responses, "responses", "", "Path to JSON file of {item_id:int}, '-' for stdin, or inline JSON")
	fs.StringVar(&cfg.Responses, "r", "", "Shorthand for -responses")
	fs.IntVar(&cfg.Passes, "passes", rundomain.DefaultPasses, "number of machine passes")
	fs.IntVar(&cfg.Passes, "p", rundomain.DefaultPasses, "Shorthand for -passes")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducibility (0 = random)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the om command, writing JSON results to out.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	switch cfg.Command {
	case "schema":
		return runSchema(cfg, out)
	case "survey":
		return runSurvey(cfg, out)
	case "score":
		return runScore(cfg, in, out)
	case "place":
		return runPlace(cfg, in, out)
	case "run":
		return runMachine(ctx, cfg, in, out)
	case "":
		return errors.New("a command is required (schema, survey, score, place, run)")
	default:
		return fmt.Errorf("unknown command %q (valid commands: schema, survey, score, place, run)", cfg.Command)
	}
}

func runSchema(cfg Config, out io.Writer) error {
	doc, err := survey.JSONSchema(cfg.Model)
	if err != nil {
		return err
	}
	return printJSON(out, doc)
}

func runSurvey(cfg Config, out io.Writer) error {
	return printJSON(out, survey.Build(cfg.Locale))
}

func runScore(cfg Config, in io.Reader, out io.Writer) error {
	responses, err := loadResponses(cfg.Responses, in)
	if err != nil {
		return err
	}
	scores, err := survey.Score(survey.Build(cfg.Locale), responses)
	if err != nil {
		return err
	}
	return printJSON(out, scores)
}

func runPlace(cfg Config, in io.Reader, out io.Writer) error {
	responses, err := loadResponses(cfg.Responses, in)
	if err != nil {
		return err
	}
	scores, err := survey.Score(survey.Build(cfg.Locale), responses)
	if err != nil {
		return err
	}
	return printJSON(out, survey.PlaceOnContinuum(scores))
}

func runMachine(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	responses, err := loadResponses(cfg.Responses, in)
	if err != nil {
		return err
	}

	input := rundomain.ExecuteInput{
		Responses: responses,
		Passes:    cfg.Passes,
		Locale:    cfg.Locale,
	}
	if cfg.Seed != 0 {
		input.Seed = &cfg.Seed
	}

	service := rundomain.NewService(nil, nil, rundomain.Config{})
	outcome, err := service.Execute(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(out, outcome)
}

// loadResponses reads survey responses from stdin (empty value or "-"),
// a file path, or an inline JSON object.
func loadResponses(value string, stdin io.Reader) (map[string]int, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read responses from stdin: %w", err)
		}
		return decodeResponses(data)
	}
	if strings.HasPrefix(value, "{") {
		return decodeResponses([]byte(value))
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("read responses file: %w", err)
	}
	return decodeResponses(data)
}

func decodeResponses(data []byte) (map[string]int, error) {
	var responses map[string]int
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return responses, nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
