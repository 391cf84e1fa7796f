package api

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
)

// scoreRequest carries Likert responses for scoring and placement.
type scoreRequest struct {
	Responses map[string]int `json:"responses"`
}

// runRequest is the legacy immediate-run payload. A user id opts the
// run into persistence.
type runRequest struct {
	Responses map[string]int `json:"responses"`
	Passes    int            `json:"passes"`
	UserID    string         `json:"user_id"`
}

// runResponseJSON is the legacy run result, extended with the record
// id when the run was persisted.
type runResponseJSON struct {
	domain.Outcome
	RunID string `json:"run_id,omitempty"`
}

// runCreateRequest is the persisted-run payload.
type runCreateRequest struct {
	UserID    string         `json:"user_id"`
	Responses map[string]int `json:"responses"`
	Passes    int            `json:"passes"`
	Notes     string         `json:"notes"`
}

// compareRequest selects users for side-by-side run comparison.
type compareRequest struct {
	UserIDs      []string `json:"user_ids"`
	LimitPerUser int      `json:"limit_per_user"`
	IncludeState bool     `json:"include_state"`
}

// projectionRequest selects stored runs and projection parameters.
// Since and Until are RFC 3339 timestamps.
type projectionRequest struct {
	UserIDs      []string `json:"user_ids"`
	SurveyID     string   `json:"survey_id"`
	Since        string   `json:"since"`
	Until        string   `json:"until"`
	Dims         int      `json:"dims"`
	Technique    string   `json:"technique"`
	Features     []string `json:"features"`
	LimitPerUser int      `json:"limit_per_user"`
}

// runRecordJSON mirrors one stored run for API responses. List reads
// omit the serialized final state unless its inclusion was requested.
type runRecordJSON struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	SurveyID   string             `json:"survey_id"`
	Passes     int                `json:"passes"`
	CreatedAt  string             `json:"created_at"`
	Coords2DX  float64            `json:"coords2d_x"`
	Coords2DY  float64            `json:"coords2d_y"`
	Coords3DV  float64            `json:"coords3d_v"`
	Coords3DA  float64            `json:"coords3d_a"`
	Coords3DD  float64            `json:"coords3d_d"`
	Stability  *float64           `json:"stability"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	FinalState json.RawMessage    `json:"final_state,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

func toRunRecord(run storage.Run) runRecordJSON {
	return runRecordJSON{
		ID:         run.ID,
		UserID:     run.UserID,
		SurveyID:   run.SurveyID,
		Passes:     run.Passes,
		CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339),
		Coords2DX:  run.Coords2DX,
		Coords2DY:  run.Coords2DY,
		Coords3DV:  run.Coords3DV,
		Coords3DA:  run.Coords3DA,
		Coords3DD:  run.Coords3DD,
		Stability:  run.Stability,
		Scores:     run.Scores,
		FinalState: run.FinalState,
		Notes:      run.Notes,
	}
}

func toRunRecords(runs []storage.Run) []runRecordJSON {
	records := make([]runRecordJSON, 0, len(runs))
	for _, run := range runs {
		records = append(records, toRunRecord(run))
	}
	return records
}

// runListJSON is one page of run records.
type runListJSON struct {
	Items    []runRecordJSON `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// compareResponseJSON groups recent run records per requested user.
type compareResponseJSON struct {
	Results      map[string][]runRecordJSON `json:"results"`
	TotalUsers   int                        `json:"total_users"`
	LimitPerUser int                        `json:"limit_per_user"`
}

// projectionPointJSON is one projected run with flattened coordinates.
type projectionPointJSON struct {
	RunID     string         `json:"run_id"`
	UserID    string         `json:"user_id"`
	CreatedAt string         `json:"created_at"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Z         *float64       `json:"z,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// projectionResultJSON carries the projected run map.
type projectionResultJSON struct {
	Technique         string                `json:"technique"`
	Dims              int                   `json:"dims"`
	Points            []projectionPointJSON `json:"points"`
	ExplainedVariance []float64             `json:"explained_variance"`
	FeatureNames      []string              `json:"feature_names"`
}

func toProjectionResult(result domain.ProjectionResult) projectionResultJSON {
	points := make([]projectionPointJSON, 0, len(result.Points))
	for _, point := range result.Points {
		out := projectionPointJSON{
			RunID:     point.RunID,
			UserID:    point.UserID,
			CreatedAt: point.CreatedAt.UTC().Format(time.RFC3339),
			Meta:      map[string]any{"survey_id": point.SurveyID},
		}
		if len(point.Coords) > 0 {
			out.X = point.Coords[0]
		}
		if len(point.Coords) > 1 {
			out.Y = point.Coords[1]
		}
		if len(point.Coords) > 2 {
			z := point.Coords[2]
			out.Z = &z
		}
		if point.Stability != nil {
			out.Meta["stability"] = *point.Stability
		}
		points = append(points, out)
	}
	return projectionResultJSON{
		Technique:         result.Technique,
		Dims:              result.Dims,
		Points:            points,
		ExplainedVariance: result.ExplainedVariance,
		FeatureNames:      result.FeatureNames,
	}
}

// runStatsJSON aggregates the run table for dashboards.
type runStatsJSON struct {
	TotalRuns     int               `json:"total_runs"`
	UniqueUsers   int               `json:"unique_users"`
	DateRange     map[string]string `json:"date_range"`
	MeanStability *float64          `json:"mean_stability"`
	RunsByUser    map[string]int    `json:"runs_by_user"`
}

func toRunStats(stats storage.RunStats) runStatsJSON {
	dateRange := map[string]string{}
	if stats.FirstRunAt != nil {
		dateRange["start"] = stats.FirstRunAt.UTC().Format(time.RFC3339)
	}
	if stats.LastRunAt != nil {
		dateRange["end"] = stats.LastRunAt.UTC().Format(time.RFC3339)
	}
	return runStatsJSON{
		TotalRuns:     stats.TotalRuns,
		UniqueUsers:   stats.UniqueUsers,
		DateRange:     dateRange,
		MeanStability: stats.MeanStability,
		RunsByUser:    stats.RunsByUser,
	}
}
