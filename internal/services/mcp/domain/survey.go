package domain

import (
	"context"
	"fmt"

	"github.com/louisbranch/ontogenic.space/internal/survey"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SurveyGetInput represents the MCP tool input for fetching the survey.
type SurveyGetInput struct {
	Locale string `json:"locale,omitempty" jsonschema:"optional BCP 47 locale for prompts and scale labels"`
}

// SurveyItem is one rendered survey question in tool output.
type SurveyItem struct {
	ID      string  `json:"id" jsonschema:"item identifier"`
	Prompt  string  `json:"prompt" jsonschema:"localized item prompt"`
	Reverse bool    `json:"reverse" jsonschema:"whether the response is reverse keyed"`
	MapsTo  string  `json:"maps_to" jsonschema:"trait or PAD axis the item feeds"`
	Weight  float64 `json:"weight" jsonschema:"item weight in the trait mean"`
}

// SurveyGetResult represents the MCP tool output for fetching the survey.
type SurveyGetResult struct {
	ID        string       `json:"id" jsonschema:"survey identifier"`
	ScaleMin  int          `json:"scale_min" jsonschema:"lowest Likert response"`
	ScaleMax  int          `json:"scale_max" jsonschema:"highest Likert response"`
	ScaleLow  string       `json:"scale_low" jsonschema:"localized label for the low anchor"`
	ScaleHigh string       `json:"scale_high" jsonschema:"localized label for the high anchor"`
	Items     []SurveyItem `json:"items" jsonschema:"ordered survey items"`
}

// SurveyGetTool defines the MCP tool schema for fetching the survey.
func SurveyGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "survey_get",
		Description: "Returns the canonical survey instrument with prompts localized for the requested locale",
	}
}

// SurveyGetHandler executes a survey fetch request.
func SurveyGetHandler() mcp.ToolHandlerFor[SurveyGetInput, SurveyGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SurveyGetInput) (*mcp.CallToolResult, SurveyGetResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, SurveyGetResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		built := survey.Build(input.Locale)
		result := SurveyGetResult{
			ID:        built.ID,
			ScaleMin:  built.ScaleMin,
			ScaleMax:  built.ScaleMax,
			ScaleLow:  built.ScaleLow,
			ScaleHigh: built.ScaleHigh,
			Items:     make([]SurveyItem, len(built.Items)),
		}
		for i, item := range built.Items {
			result.Items[i] = SurveyItem{
				ID:      item.ID,
				Prompt:  item.Prompt,
				Reverse: item.Reverse,
				MapsTo:  item.MapsTo,
				Weight:  item.Weight,
			}
		}

		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// ResponsesScoreInput represents the MCP tool input for scoring responses.
type ResponsesScoreInput struct {
	Responses map[string]int `json:"responses" jsonschema:"Likert responses keyed by item identifier"`
	Locale    string         `json:"locale,omitempty" jsonschema:"optional locale; scoring is locale independent but echoes the instrument used"`
}

// ResponsesScoreResult represents the MCP tool output for scoring responses.
type ResponsesScoreResult struct {
	SurveyID string             `json:"survey_id" jsonschema:"survey identifier the responses were scored against"`
	Scores   map[string]float64 `json:"scores" jsonschema:"trait scores in [-1, 1] keyed by trait name"`
}

// ResponsesScoreTool defines the MCP tool schema for scoring responses.
func ResponsesScoreTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "responses_score",
		Description: "Scores Likert survey responses into normalized trait scores",
	}
}

// ResponsesScoreHandler executes a response scoring request.
func ResponsesScoreHandler() mcp.ToolHandlerFor[ResponsesScoreInput, ResponsesScoreResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ResponsesScoreInput) (*mcp.CallToolResult, ResponsesScoreResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ResponsesScoreResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		built := survey.Build(input.Locale)
		scores, err := survey.Score(built, input.Responses)
		if err != nil {
			return nil, ResponsesScoreResult{}, fmt.Errorf("score responses: %w", err)
		}

		result := ResponsesScoreResult{
			SurveyID: built.ID,
			Scores:   scores,
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// PlacementComputeInput represents the MCP tool input for continuum placement.
type PlacementComputeInput struct {
	Scores map[string]float64 `json:"scores" jsonschema:"trait scores in [-1, 1] keyed by trait name"`
}

// PlacementPayload carries continuum coordinates in tool output.
type PlacementPayload struct {
	Coords2D []float64 `json:"coords2d" jsonschema:"x and y on the 2D continuum"`
	Coords3D []float64 `json:"coords3d" jsonschema:"coordinates along the named 3D axes"`
	Axes     []string  `json:"axes" jsonschema:"axis names for the 3D coordinates"`
	Notes    string    `json:"notes" jsonschema:"interpretation notes"`
}

// PlacementComputeResult represents the MCP tool output for continuum placement.
type PlacementComputeResult struct {
	Placement PlacementPayload `json:"placement" jsonschema:"continuum placement for the scores"`
}

// PlacementComputeTool defines the MCP tool schema for continuum placement.
func PlacementComputeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "placement_compute",
		Description: "Projects trait scores onto the 2D and 3D personality continuum",
	}
}

// PlacementComputeHandler executes a continuum placement request.
func PlacementComputeHandler() mcp.ToolHandlerFor[PlacementComputeInput, PlacementComputeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlacementComputeInput) (*mcp.CallToolResult, PlacementComputeResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlacementComputeResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		placement := survey.PlaceOnContinuum(input.Scores)
		result := PlacementComputeResult{Placement: placementPayload(placement)}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// placementPayload widens fixed-size placement arrays into slices for
// tool schema reflection.
func placementPayload(p survey.Placement) PlacementPayload {
	return PlacementPayload{
		Coords2D: []float64{p.Coords2D[0], p.Coords2D[1]},
		Coords3D: []float64{p.Coords3D[0], p.Coords3D[1], p.Coords3D[2]},
		Axes:     []string{p.Axes[0], p.Axes[1], p.Axes[2]},
		Notes:    p.Notes,
	}
}
