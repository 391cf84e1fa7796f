// Package domain implements the run service: survey scoring, glyph
// pipeline execution, persistence, and the derived read models built
// on top of stored runs.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/glyph"
	apperrors "github.com/louisbranch/ontogenic.space/internal/platform/errors"
	"github.com/louisbranch/ontogenic.space/internal/platform/id"
	"github.com/louisbranch/ontogenic.space/internal/platform/pagination"
	"github.com/louisbranch/ontogenic.space/internal/projection"
	"github.com/louisbranch/ontogenic.space/internal/services/run/filter"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit/events"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"github.com/louisbranch/ontogenic.space/internal/survey"
	"go.opentelemetry.io/otel/trace"
)

// Pass bounds for a single pipeline run.
const (
	DefaultPasses = 3
	MinPasses     = 1
	MaxPasses     = 20
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Default per-user windows for the derived read models.
const (
	DefaultCompareLimit      = 50
	DefaultProjectionPerUser = 100
)

// Config controls run service behavior.
type Config struct {
	Clock func() time.Time
}

// Service executes survey-driven pipeline runs and serves stored runs.
type Service struct {
	store storage.RunStore
	audit *audit.Emitter
	clock func() time.Time
}

// NewService builds a run service over a run store. The emitter may be
// nil, which disables audit writes.
func NewService(store storage.RunStore, emitter *audit.Emitter, cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, audit: emitter, clock: clock}
}

// ExecuteInput carries one non-persisted pipeline execution request.
type ExecuteInput struct {
	Responses map[string]int
	Passes    int
	Locale    string
	// Seed pins the machine's random generator; nil draws a fresh seed.
	Seed *int64
}

// Pipeline describes the machine configuration one outcome was produced
// with.
type Pipeline struct {
	SurveyID string   `json:"survey_id"`
	Passes   int      `json:"passes"`
	Glyphs   []string `json:"glyphs"`
}

// Outcome is the full result of scoring responses and running the
// machine over the resulting state.
type Outcome struct {
	Scores     map[string]float64 `json:"scores"`
	Placement  survey.Placement   `json:"placement"`
	FinalState glyph.Snapshot     `json:"final_state"`
	History    []string           `json:"history"`
	Pipeline   Pipeline           `json:"pipeline"`
}

// Stability returns the snapshot's stability belief, or nil when the
// belief is absent or non-numeric.
func (o Outcome) Stability() *float64 {
	value, ok := o.FinalState.Beliefs[glyph.StabilityBelief]
	if !ok {
		return nil
	}
	number, ok := value.Number()
	if !ok {
		return nil
	}
	return &number
}

// Execute scores responses, places them, and runs the glyph pipeline
// without persisting anything.
func (s *Service) Execute(ctx context.Context, in ExecuteInput) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	passes, err := resolvePasses(in.Passes)
	if err != nil {
		return Outcome{}, err
	}

	svy := survey.Build(in.Locale)
	scores, err := survey.Score(svy, in.Responses)
	if err != nil {
		return Outcome{}, err
	}
	placement := survey.PlaceOnContinuum(scores)

	state := survey.NewGlyphState(scores, placement, svy.ID)
	opts := []glyph.Option{}
	if in.Seed != nil {
		opts = append(opts, glyph.WithSeed(*in.Seed))
	}
	machine := glyph.NewMachine(opts...)
	machine.Run(state, passes)

	snapshot := state.Snapshot()
	glyphs := make([]string, 0, len(machine.Stages()))
	for _, stage := range machine.Stages() {
		glyphs = append(glyphs, stage.Name())
	}

	return Outcome{
		Scores:     scores,
		Placement:  placement,
		FinalState: snapshot,
		History:    snapshot.History,
		Pipeline: Pipeline{
			SurveyID: svy.ID,
			Passes:   passes,
			Glyphs:   glyphs,
		},
	}, nil
}

// CreateInput carries one persisted run request.
type CreateInput struct {
	UserID    string
	Responses map[string]int
	Passes    int
	Notes     string
	Locale    string
	Seed      *int64
}

// CreatedRun pairs the persisted record with the full execution outcome.
type CreatedRun struct {
	Record  storage.Run
	Outcome Outcome
}

// CreateRun executes the pipeline for a user and persists the result.
func (s *Service) CreateRun(ctx context.Context, in CreateInput) (CreatedRun, error) {
	if s == nil || s.store == nil {
		return CreatedRun{}, fmt.Errorf("run store is not configured")
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return CreatedRun{}, apperrors.New(apperrors.CodeRunUserIDEmpty, "user id is required")
	}

	outcome, err := s.Execute(ctx, ExecuteInput{
		Responses: in.Responses,
		Passes:    in.Passes,
		Locale:    in.Locale,
		Seed:      in.Seed,
	})
	if err != nil {
		return CreatedRun{}, err
	}

	runID, err := id.NewID()
	if err != nil {
		return CreatedRun{}, fmt.Errorf("new run id: %w", err)
	}
	stateJSON, err := json.Marshal(outcome.FinalState)
	if err != nil {
		return CreatedRun{}, fmt.Errorf("marshal final state: %w", err)
	}
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = outcome.Placement.Notes
	}

	record := storage.Run{
		ID:         runID,
		UserID:     userID,
		SurveyID:   outcome.Pipeline.SurveyID,
		Passes:     outcome.Pipeline.Passes,
		CreatedAt:  s.clock().UTC(),
		Coords2DX:  outcome.Placement.Coords2D[0],
		Coords2DY:  outcome.Placement.Coords2D[1],
		Coords3DV:  outcome.Placement.Coords3D[0],
		Coords3DA:  outcome.Placement.Coords3D[1],
		Coords3DD:  outcome.Placement.Coords3D[2],
		Stability:  outcome.Stability(),
		Scores:     outcome.Scores,
		FinalState: stateJSON,
		Notes:      notes,
	}
	if err := s.store.CreateRun(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return CreatedRun{}, apperrors.Wrap(apperrors.CodeAlreadyExists, "run id collision", err)
		}
		return CreatedRun{}, fmt.Errorf("persist run: %w", err)
	}

	s.emitRunCreated(ctx, record)
	return CreatedRun{Record: record, Outcome: outcome}, nil
}

func (s *Service) emitRunCreated(ctx context.Context, record storage.Run) {
	evt := storage.AuditEvent{
		EventName: events.RunCreate,
		Severity:  string(audit.SeverityInfo),
		RunID:     record.ID,
		UserID:    record.UserID,
		Attributes: map[string]any{
			"survey_id": record.SurveyID,
			"passes":    record.Passes,
		},
	}
	if record.Stability != nil {
		evt.Attributes["stability"] = *record.Stability
	}
	if span := trace.SpanFromContext(ctx).SpanContext(); span.IsValid() {
		evt.TraceID = span.TraceID().String()
		evt.SpanID = span.SpanID().String()
	}
	if err := s.audit.Emit(ctx, evt); err != nil {
		log.Printf("audit emit %s: %v", events.RunCreate, err)
	}
}

// GetRun returns one stored run by ID.
func (s *Service) GetRun(ctx context.Context, runID string) (storage.Run, error) {
	if s == nil || s.store == nil {
		return storage.Run{}, fmt.Errorf("run store is not configured")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return storage.Run{}, apperrors.New(apperrors.CodeNotFound, "run not found")
	}
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Run{}, apperrors.WithMetadata(apperrors.CodeNotFound, "run not found", map[string]string{
				"RunID": runID,
			})
		}
		return storage.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListInput carries run listing parameters.
type ListInput struct {
	UserID       string
	SurveyID     string
	Since        *time.Time
	Until        *time.Time
	Filter       string
	Page         int
	PageSize     int
	IncludeState bool
}

// ListResult is one page of stored runs.
type ListResult struct {
	Runs     []storage.Run
	Total    int
	Page     int
	PageSize int
}

// ListRuns returns a filtered page of stored runs, newest first.
func (s *Service) ListRuns(ctx context.Context, in ListInput) (ListResult, error) {
	if s == nil || s.store == nil {
		return ListResult{}, fmt.Errorf("run store is not configured")
	}
	cond, err := filter.ParseRunFilter(in.Filter)
	if err != nil {
		return ListResult{}, apperrors.WrapWithMetadata(apperrors.CodeListInvalidFilter,
			"invalid filter expression", map[string]string{"Reason": err.Error()}, err)
	}

	page := pagination.ClampPage(in.Page)
	pageSize := pagination.ClampPageSize(in.PageSize, pagination.PageSizeConfig{
		Default: defaultPageSize,
		Max:     maxPageSize,
	})

	list, err := s.store.ListRuns(ctx, storage.ListRunsQuery{
		UserID:       in.UserID,
		SurveyID:     in.SurveyID,
		Since:        in.Since,
		Until:        in.Until,
		Where:        cond.Clause,
		WhereParams:  cond.Params,
		Page:         page,
		PageSize:     pageSize,
		IncludeState: in.IncludeState,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list runs: %w", err)
	}
	return ListResult{
		Runs:     list.Runs,
		Total:    list.Total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// CompareInput identifies the users whose recent runs should be
// compared side by side.
type CompareInput struct {
	UserIDs      []string
	LimitPerUser int
	IncludeState bool
}

// CompareRuns returns the most recent runs per requested user.
func (s *Service) CompareRuns(ctx context.Context, in CompareInput) (map[string][]storage.Run, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("run store is not configured")
	}
	userIDs := make([]string, 0, len(in.UserIDs))
	for _, userID := range in.UserIDs {
		if userID = strings.TrimSpace(userID); userID != "" {
			userIDs = append(userIDs, userID)
		}
	}
	if len(userIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeCompareUserIDsEmpty, "at least one user id is required")
	}
	limit := in.LimitPerUser
	if limit <= 0 {
		limit = DefaultCompareLimit
	}
	byUser, err := s.store.CompareRuns(ctx, userIDs, limit, in.IncludeState)
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	return byUser, nil
}

// ProjectionInput selects stored runs and projection parameters.
type ProjectionInput struct {
	UserIDs      []string
	SurveyID     string
	Since        *time.Time
	Until        *time.Time
	LimitPerUser int
	Technique    string
	Dims         int
	Features     []string
}

// ProjectedRun is one run's projected coordinates joined with the
// source run's metadata.
type ProjectedRun struct {
	RunID     string
	UserID    string
	SurveyID  string
	CreatedAt time.Time
	Stability *float64
	Coords    []float64
}

// ProjectionResult is a low-dimensional map of stored runs.
type ProjectionResult struct {
	Technique         string
	Dims              int
	Points            []ProjectedRun
	ExplainedVariance []float64
	FeatureNames      []string
}

// Projection reduces stored run scores to a low-dimensional map. Each
// projected point keeps its run's identity so plots can label and
// color by user or recency.
func (s *Service) Projection(ctx context.Context, in ProjectionInput) (ProjectionResult, error) {
	if s == nil || s.store == nil {
		return ProjectionResult{}, fmt.Errorf("run store is not configured")
	}
	limit := in.LimitPerUser
	if limit <= 0 {
		limit = DefaultProjectionPerUser
	}
	runs, err := s.store.ListRunsForProjection(ctx, storage.ProjectionQuery{
		UserIDs:      in.UserIDs,
		SurveyID:     in.SurveyID,
		Since:        in.Since,
		Until:        in.Until,
		LimitPerUser: limit,
	})
	if err != nil {
		return ProjectionResult{}, fmt.Errorf("list runs for projection: %w", err)
	}

	samples := make([]projection.Sample, 0, len(runs))
	for _, run := range runs {
		samples = append(samples, projection.Sample{
			ID:     run.ID,
			Label:  run.UserID,
			Values: run.Scores,
		})
	}
	result, err := projection.Project(samples, projection.Options{
		Technique: in.Technique,
		Dims:      in.Dims,
		Features:  in.Features,
	})
	if err != nil {
		return ProjectionResult{}, err
	}

	// Project preserves sample order, so points zip with runs by index.
	points := make([]ProjectedRun, len(result.Points))
	for i, point := range result.Points {
		run := runs[i]
		points[i] = ProjectedRun{
			RunID:     run.ID,
			UserID:    run.UserID,
			SurveyID:  run.SurveyID,
			CreatedAt: run.CreatedAt,
			Stability: run.Stability,
			Coords:    point.Coords,
		}
	}
	return ProjectionResult{
		Technique:         result.Technique,
		Dims:              result.Dims,
		Points:            points,
		ExplainedVariance: result.ExplainedVariance,
		FeatureNames:      result.Features,
	}, nil
}

// Stats returns aggregate counters over all stored runs.
func (s *Service) Stats(ctx context.Context) (storage.RunStats, error) {
	if s == nil || s.store == nil {
		return storage.RunStats{}, fmt.Errorf("run store is not configured")
	}
	stats, err := s.store.GetRunStats(ctx)
	if err != nil {
		return storage.RunStats{}, fmt.Errorf("get run stats: %w", err)
	}
	return stats, nil
}

func resolvePasses(passes int) (int, error) {
	if passes == 0 {
		return DefaultPasses, nil
	}
	if passes < MinPasses || passes > MaxPasses {
		return 0, apperrors.WithMetadata(apperrors.CodeRunInvalidPasses, "passes outside allowed range", map[string]string{
			"Passes": strconv.Itoa(passes),
			"Min":    strconv.Itoa(MinPasses),
			"Max":    strconv.Itoa(MaxPasses),
		})
	}
	return passes, nil
}
