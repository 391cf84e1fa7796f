// Package storage defines persistence contracts for survey run state.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested run record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained run already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Run stores one persisted pipeline run: who took the survey, the
// scored traits, the continuum placement, and the final machine state.
type Run struct {
	ID        string
	UserID    string
	SurveyID  string
	Passes    int
	CreatedAt time.Time
	Coords2DX float64
	Coords2DY float64
	Coords3DV float64
	Coords3DA float64
	Coords3DD float64
	// Stability carries the run's anti-consistent stability belief; nil
	// when the final state never resolved one.
	Stability *float64
	Scores    map[string]float64
	// FinalState is the serialized machine snapshot. List reads leave
	// it empty unless state inclusion is requested.
	FinalState json.RawMessage
	Notes      string
}

// ListRunsQuery narrows and pages a run listing. Where carries an
// extra SQL condition over the filterable columns with its bind
// params; an empty clause matches everything.
type ListRunsQuery struct {
	UserID       string
	SurveyID     string
	Since        *time.Time
	Until        *time.Time
	Where        string
	WhereParams  []any
	Page         int
	PageSize     int
	IncludeState bool
}

// RunList is one page of runs plus the unpaged total.
type RunList struct {
	Runs  []Run
	Total int
}

// ProjectionQuery selects the run window feeding a projection: the
// most recent LimitPerUser runs for each matching user.
type ProjectionQuery struct {
	UserIDs      []string
	SurveyID     string
	Since        *time.Time
	Until        *time.Time
	LimitPerUser int
}

// RunStats aggregates the run table for dashboards.
type RunStats struct {
	TotalRuns     int
	UniqueUsers   int
	FirstRunAt    *time.Time
	LastRunAt     *time.Time
	MeanStability *float64
	RunsByUser    map[string]int
}

// RunStore persists pipeline run records.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, query ListRunsQuery) (RunList, error)
	CompareRuns(ctx context.Context, userIDs []string, limitPerUser int, includeState bool) (map[string][]Run, error)
	ListRunsForProjection(ctx context.Context, query ProjectionQuery) ([]Run, error)
	GetRunStats(ctx context.Context) (RunStats, error)
}

// AuditEvent captures operational observations emitted around run
// handling.
type AuditEvent struct {
	Timestamp      time.Time
	EventName      string
	Severity       string
	RunID          string
	UserID         string
	RequestID      string
	TraceID        string
	SpanID         string
	Attributes     map[string]any
	AttributesJSON []byte
}

// AuditEventStore persists operational audit records for incident
// analysis.
type AuditEventStore interface {
	AppendAuditEvent(ctx context.Context, evt AuditEvent) error
}
