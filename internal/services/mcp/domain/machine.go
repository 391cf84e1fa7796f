package domain

import (
	"context"
	"fmt"

	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MachineRunInput represents the MCP tool input for a full pipeline run.
type MachineRunInput struct {
	UserID    string         `json:"user_id,omitempty" jsonschema:"optional user identifier; when set the run is persisted"`
	Responses map[string]int `json:"responses" jsonschema:"Likert responses keyed by item identifier"`
	Passes    int            `json:"passes,omitempty" jsonschema:"glyph pipeline passes; defaults when zero"`
	Notes     string         `json:"notes,omitempty" jsonschema:"optional free-form notes stored with a persisted run"`
	Locale    string         `json:"locale,omitempty" jsonschema:"optional locale for the scoring instrument"`
	Seed      *int64         `json:"seed,omitempty" jsonschema:"optional seed pinning the machine's random generator"`
}

// MachineRunResult represents the MCP tool output for a full pipeline run.
type MachineRunResult struct {
	RunID      string             `json:"run_id,omitempty" jsonschema:"persisted run identifier; empty for ephemeral runs"`
	UserID     string             `json:"user_id,omitempty" jsonschema:"user the run was stored for"`
	SurveyID   string             `json:"survey_id" jsonschema:"survey identifier the responses were scored against"`
	Passes     int                `json:"passes" jsonschema:"pipeline passes executed"`
	Glyphs     []string           `json:"glyphs" jsonschema:"ordered glyph names the pipeline applied"`
	Scores     map[string]float64 `json:"scores" jsonschema:"trait scores in [-1, 1] keyed by trait name"`
	Placement  PlacementPayload   `json:"placement" jsonschema:"continuum placement for the scores"`
	Stability  *float64           `json:"stability,omitempty" jsonschema:"final stability belief when the machine resolved one"`
	FinalState map[string]any     `json:"final_state" jsonschema:"serialized machine state after the last pass"`
	History    []string           `json:"history" jsonschema:"pipeline transformation log"`
	CreatedAt  string             `json:"created_at,omitempty" jsonschema:"RFC3339 timestamp when the run was persisted"`
}

// MachineRunTool defines the MCP tool schema for a full pipeline run.
func MachineRunTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "machine_run",
		Description: "Scores responses, places them on the continuum, and runs the glyph pipeline; persists the run when user_id is set",
	}
}

// MachineRunHandler executes a pipeline run request.
func MachineRunHandler(service RunService, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[MachineRunInput, MachineRunResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MachineRunInput) (*mcp.CallToolResult, MachineRunResult, error) {
		if service == nil {
			return nil, MachineRunResult{}, fmt.Errorf("run service is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, MachineRunResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		if input.UserID == "" {
			outcome, err := service.Execute(ctx, rundomain.ExecuteInput{
				Responses: input.Responses,
				Passes:    input.Passes,
				Locale:    input.Locale,
				Seed:      input.Seed,
			})
			if err != nil {
				return nil, MachineRunResult{}, fmt.Errorf("machine run failed: %w", err)
			}
			result, err := machineRunResult(outcome)
			if err != nil {
				return nil, MachineRunResult{}, err
			}
			return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
		}

		created, err := service.CreateRun(ctx, rundomain.CreateInput{
			UserID:    input.UserID,
			Responses: input.Responses,
			Passes:    input.Passes,
			Notes:     input.Notes,
			Locale:    input.Locale,
			Seed:      input.Seed,
		})
		if err != nil {
			return nil, MachineRunResult{}, fmt.Errorf("machine run failed: %w", err)
		}

		result, err := machineRunResult(created.Outcome)
		if err != nil {
			return nil, MachineRunResult{}, err
		}
		result.RunID = created.Record.ID
		result.UserID = created.Record.UserID
		result.CreatedAt = formatTimestamp(created.Record.CreatedAt)

		NotifyResourceUpdates(
			ctx,
			notify,
			RunsListResource().URI,
			fmt.Sprintf("run://%s", created.Record.ID),
		)
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// machineRunResult maps an execution outcome into the tool result shape.
func machineRunResult(outcome rundomain.Outcome) (MachineRunResult, error) {
	state, err := snapshotDocument(outcome.FinalState)
	if err != nil {
		return MachineRunResult{}, err
	}
	return MachineRunResult{
		SurveyID:   outcome.Pipeline.SurveyID,
		Passes:     outcome.Pipeline.Passes,
		Glyphs:     outcome.Pipeline.Glyphs,
		Scores:     outcome.Scores,
		Placement:  placementPayload(outcome.Placement),
		Stability:  outcome.Stability(),
		FinalState: state,
		History:    outcome.History,
	}, nil
}
