package domain

import (
	"context"
	"fmt"

	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RunSummary is one stored run in tool output.
type RunSummary struct {
	ID         string             `json:"id" jsonschema:"run identifier"`
	UserID     string             `json:"user_id" jsonschema:"user the run belongs to"`
	SurveyID   string             `json:"survey_id" jsonschema:"survey identifier the run was scored against"`
	Passes     int                `json:"passes" jsonschema:"pipeline passes executed"`
	CreatedAt  string             `json:"created_at" jsonschema:"RFC3339 timestamp when the run was stored"`
	Coords2D   []float64          `json:"coords2d" jsonschema:"x and y on the 2D continuum"`
	Coords3D   []float64          `json:"coords3d" jsonschema:"valence, arousal, dominance coordinates"`
	Stability  *float64           `json:"stability,omitempty" jsonschema:"final stability belief when the machine resolved one"`
	Scores     map[string]float64 `json:"scores,omitempty" jsonschema:"trait scores keyed by trait name"`
	FinalState map[string]any     `json:"final_state,omitempty" jsonschema:"serialized machine state when state inclusion was requested"`
	Notes      string             `json:"notes,omitempty" jsonschema:"free-form notes stored with the run"`
}

// runSummary maps a stored run into the tool output shape.
func runSummary(record storage.Run) (RunSummary, error) {
	state, err := stateDocument(record.FinalState)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		ID:         record.ID,
		UserID:     record.UserID,
		SurveyID:   record.SurveyID,
		Passes:     record.Passes,
		CreatedAt:  formatTimestamp(record.CreatedAt),
		Coords2D:   []float64{record.Coords2DX, record.Coords2DY},
		Coords3D:   []float64{record.Coords3DV, record.Coords3DA, record.Coords3DD},
		Stability:  record.Stability,
		Scores:     record.Scores,
		FinalState: state,
		Notes:      record.Notes,
	}, nil
}

// runSummaries maps a run slice into tool output order-preservingly.
func runSummaries(records []storage.Run) ([]RunSummary, error) {
	summaries := make([]RunSummary, len(records))
	for i, record := range records {
		summary, err := runSummary(record)
		if err != nil {
			return nil, err
		}
		summaries[i] = summary
	}
	return summaries, nil
}

// RunsListInput represents the MCP tool input for listing stored runs.
type RunsListInput struct {
	UserID       string `json:"user_id,omitempty" jsonschema:"restrict to one user"`
	SurveyID     string `json:"survey_id,omitempty" jsonschema:"restrict to one survey"`
	Since        string `json:"since,omitempty" jsonschema:"RFC3339 lower bound on creation time"`
	Until        string `json:"until,omitempty" jsonschema:"RFC3339 upper bound on creation time"`
	Filter       string `json:"filter,omitempty" jsonschema:"filter expression over user_id, survey_id, notes, passes, stability, and created_at"`
	Page         int    `json:"page,omitempty" jsonschema:"1-based page number"`
	PageSize     int    `json:"page_size,omitempty" jsonschema:"page size; defaults and caps apply"`
	IncludeState bool   `json:"include_state,omitempty" jsonschema:"include each run's serialized machine state"`
}

// RunsListResult represents the MCP tool output for listing stored runs.
type RunsListResult struct {
	Runs     []RunSummary `json:"runs" jsonschema:"one page of stored runs, newest first"`
	Total    int          `json:"total" jsonschema:"total runs matching the selection"`
	Page     int          `json:"page" jsonschema:"1-based page number returned"`
	PageSize int          `json:"page_size" jsonschema:"page size applied"`
}

// RunsListTool defines the MCP tool schema for listing stored runs.
func RunsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "runs_list",
		Description: "Lists stored pipeline runs, newest first, with optional filters and paging",
	}
}

// RunsListHandler executes a run listing request.
func RunsListHandler(service RunService) mcp.ToolHandlerFor[RunsListInput, RunsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RunsListInput) (*mcp.CallToolResult, RunsListResult, error) {
		if service == nil {
			return nil, RunsListResult{}, fmt.Errorf("run service is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, RunsListResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		since, err := parseInputTime("since", input.Since)
		if err != nil {
			return nil, RunsListResult{}, err
		}
		until, err := parseInputTime("until", input.Until)
		if err != nil {
			return nil, RunsListResult{}, err
		}

		page, err := service.ListRuns(ctx, rundomain.ListInput{
			UserID:       input.UserID,
			SurveyID:     input.SurveyID,
			Since:        since,
			Until:        until,
			Filter:       input.Filter,
			Page:         input.Page,
			PageSize:     input.PageSize,
			IncludeState: input.IncludeState,
		})
		if err != nil {
			return nil, RunsListResult{}, fmt.Errorf("runs list failed: %w", err)
		}

		summaries, err := runSummaries(page.Runs)
		if err != nil {
			return nil, RunsListResult{}, err
		}
		result := RunsListResult{
			Runs:     summaries,
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// RunsGetInput represents the MCP tool input for fetching one stored run.
type RunsGetInput struct {
	RunID string `json:"run_id" jsonschema:"run identifier"`
}

// RunsGetResult represents the MCP tool output for fetching one stored run.
type RunsGetResult struct {
	Run RunSummary `json:"run" jsonschema:"the stored run including its serialized machine state"`
}

// RunsGetTool defines the MCP tool schema for fetching one stored run.
func RunsGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "runs_get",
		Description: "Fetches one stored pipeline run by identifier, including its final machine state",
	}
}

// RunsGetHandler executes a run fetch request.
func RunsGetHandler(service RunService) mcp.ToolHandlerFor[RunsGetInput, RunsGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RunsGetInput) (*mcp.CallToolResult, RunsGetResult, error) {
		if service == nil {
			return nil, RunsGetResult{}, fmt.Errorf("run service is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, RunsGetResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		record, err := service.GetRun(ctx, input.RunID)
		if err != nil {
			return nil, RunsGetResult{}, fmt.Errorf("runs get failed: %w", err)
		}
		summary, err := runSummary(record)
		if err != nil {
			return nil, RunsGetResult{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), RunsGetResult{Run: summary}, nil
	}
}

// RunsCompareInput represents the MCP tool input for comparing users' runs.
type RunsCompareInput struct {
	UserIDs      []string `json:"user_ids" jsonschema:"users to compare"`
	LimitPerUser int      `json:"limit_per_user,omitempty" jsonschema:"most recent runs kept per user; defaults when zero"`
	IncludeState bool     `json:"include_state,omitempty" jsonschema:"include each run's serialized machine state"`
}

// RunsCompareResult represents the MCP tool output for comparing users' runs.
type RunsCompareResult struct {
	Users        map[string][]RunSummary `json:"users" jsonschema:"most recent runs per user, newest first"`
	TotalUsers   int                     `json:"total_users" jsonschema:"number of users with stored runs in the comparison"`
	LimitPerUser int                     `json:"limit_per_user" jsonschema:"per-user window applied"`
}

// RunsCompareTool defines the MCP tool schema for comparing users' runs.
func RunsCompareTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "runs_compare",
		Description: "Returns the most recent stored runs per requested user for side-by-side comparison",
	}
}

// RunsCompareHandler executes a run comparison request.
func RunsCompareHandler(service RunService) mcp.ToolHandlerFor[RunsCompareInput, RunsCompareResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RunsCompareInput) (*mcp.CallToolResult, RunsCompareResult, error) {
		if service == nil {
			return nil, RunsCompareResult{}, fmt.Errorf("run service is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, RunsCompareResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		byUser, err := service.CompareRuns(ctx, rundomain.CompareInput{
			UserIDs:      input.UserIDs,
			LimitPerUser: input.LimitPerUser,
			IncludeState: input.IncludeState,
		})
		if err != nil {
			return nil, RunsCompareResult{}, fmt.Errorf("runs compare failed: %w", err)
		}

		users := make(map[string][]RunSummary, len(byUser))
		for userID, records := range byUser {
			summaries, err := runSummaries(records)
			if err != nil {
				return nil, RunsCompareResult{}, err
			}
			users[userID] = summaries
		}
		limit := input.LimitPerUser
		if limit <= 0 {
			limit = rundomain.DefaultCompareLimit
		}
		result := RunsCompareResult{
			Users:        users,
			TotalUsers:   len(users),
			LimitPerUser: limit,
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// RunsStatsInput represents the MCP tool input for store-wide run statistics.
type RunsStatsInput struct{}

// RunsStatsResult represents the MCP tool output for store-wide run statistics.
type RunsStatsResult struct {
	TotalRuns     int            `json:"total_runs" jsonschema:"total stored runs"`
	UniqueUsers   int            `json:"unique_users" jsonschema:"distinct users with stored runs"`
	FirstRunAt    string         `json:"first_run_at,omitempty" jsonschema:"RFC3339 timestamp of the oldest stored run"`
	LastRunAt     string         `json:"last_run_at,omitempty" jsonschema:"RFC3339 timestamp of the newest stored run"`
	MeanStability *float64       `json:"mean_stability,omitempty" jsonschema:"mean stability over runs that resolved one"`
	RunsByUser    map[string]int `json:"runs_by_user" jsonschema:"stored run counts keyed by user"`
}

// RunsStatsTool defines the MCP tool schema for store-wide run statistics.
func RunsStatsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "runs_stats",
		Description: "Summarizes the run store: totals, per-user counts, date range, and mean stability",
	}
}

// RunsStatsHandler executes a run statistics request.
func RunsStatsHandler(service RunService) mcp.ToolHandlerFor[RunsStatsInput, RunsStatsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ RunsStatsInput) (*mcp.CallToolResult, RunsStatsResult, error) {
		if service == nil {
			return nil, RunsStatsResult{}, fmt.Errorf("run service is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, RunsStatsResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		stats, err := service.Stats(ctx)
		if err != nil {
			return nil, RunsStatsResult{}, fmt.Errorf("runs stats failed: %w", err)
		}

		result := RunsStatsResult{
			TotalRuns:     stats.TotalRuns,
			UniqueUsers:   stats.UniqueUsers,
			MeanStability: stats.MeanStability,
			RunsByUser:    stats.RunsByUser,
		}
		if stats.FirstRunAt != nil {
			result.FirstRunAt = formatTimestamp(*stats.FirstRunAt)
		}
		if stats.LastRunAt != nil {
			result.LastRunAt = formatTimestamp(*stats.LastRunAt)
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}

// RunsProjectionInput represents the MCP tool input for projecting stored runs.
type RunsProjectionInput struct {
	UserIDs      []string `json:"user_ids,omitempty" jsonschema:"restrict to these users"`
	SurveyID     string   `json:"survey_id,omitempty" jsonschema:"restrict to one survey"`
	Since        string   `json:"since,omitempty" jsonschema:"RFC3339 lower bound on creation time"`
	Until        string   `json:"until,omitempty" jsonschema:"RFC3339 upper bound on creation time"`
	LimitPerUser int      `json:"limit_per_user,omitempty" jsonschema:"most recent runs kept per user; defaults when zero"`
	Technique    string   `json:"technique,omitempty" jsonschema:"projection technique; pca is supported"`
	Dims         int      `json:"dims,omitempty" jsonschema:"output dimensionality, 2 or 3"`
	Features     []string `json:"features,omitempty" jsonschema:"score features to project; defaults to all observed"`
}

// ProjectionPoint is one projected run in tool output.
type ProjectionPoint struct {
	RunID     string    `json:"run_id" jsonschema:"run identifier"`
	UserID    string    `json:"user_id" jsonschema:"user the run belongs to"`
	SurveyID  string    `json:"survey_id" jsonschema:"survey identifier"`
	CreatedAt string    `json:"created_at" jsonschema:"RFC3339 timestamp when the run was stored"`
	Stability *float64  `json:"stability,omitempty" jsonschema:"final stability belief when resolved"`
	Coords    []float64 `json:"coords" jsonschema:"projected coordinates"`
}

// RunsProjectionResult represents the MCP tool output for projecting stored runs.
type RunsProjectionResult struct {
	Technique         string            `json:"technique" jsonschema:"projection technique applied"`
	Dims              int               `json:"dims" jsonschema:"output dimensionality"`
	Points            []ProjectionPoint `json:"points" jsonschema:"projected runs with source metadata"`
	ExplainedVariance []float64         `json:"explained_variance" jsonschema:"variance ratio captured per output dimension"`
	FeatureNames      []string          `json:"feature_names" jsonschema:"score features the projection was computed over"`
}

// RunsProjectionTool defines the MCP tool schema for projecting stored runs.
func RunsProjectionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "runs_projection",
		Description: "Reduces stored run scores to a low-dimensional map for plotting",
	}
}

// RunsProjectionHandler executes a run projection request.
func RunsProjectionHandler(service RunService) mcp.ToolHandlerFor[RunsProjectionInput, RunsProjectionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RunsProjectionInput) (*mcp.CallToolResult, RunsProjectionResult, error) {
		if service == nil {
			return nil, RunsProjectionResult{}, fmt.Errorf("run service is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, RunsProjectionResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		since, err := parseInputTime("since", input.Since)
		if err != nil {
			return nil, RunsProjectionResult{}, err
		}
		until, err := parseInputTime("until", input.Until)
		if err != nil {
			return nil, RunsProjectionResult{}, err
		}

		projection, err := service.Projection(ctx, rundomain.ProjectionInput{
			UserIDs:      input.UserIDs,
			SurveyID:     input.SurveyID,
			Since:        since,
			Until:        until,
			LimitPerUser: input.LimitPerUser,
			Technique:    input.Technique,
			Dims:         input.Dims,
			Features:     input.Features,
		})
		if err != nil {
			return nil, RunsProjectionResult{}, fmt.Errorf("runs projection failed: %w", err)
		}

		points := make([]ProjectionPoint, len(projection.Points))
		for i, point := range projection.Points {
			points[i] = ProjectionPoint{
				RunID:     point.RunID,
				UserID:    point.UserID,
				SurveyID:  point.SurveyID,
				CreatedAt: formatTimestamp(point.CreatedAt),
				Stability: point.Stability,
				Coords:    point.Coords,
			}
		}
		result := RunsProjectionResult{
			Technique:         projection.Technique,
			Dims:              projection.Dims,
			Points:            points,
			ExplainedVariance: projection.ExplainedVariance,
			FeatureNames:      projection.FeatureNames,
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), result, nil
	}
}
