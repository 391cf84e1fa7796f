// Package sqlite provides a SQLite-backed run storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/ontogenic.space/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists run state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite run store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateRun inserts one run record.
func (s *Store) CreateRun(ctx context.Context, run storage.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(run.ID)
	userID := strings.TrimSpace(run.UserID)
	surveyID := strings.TrimSpace(run.SurveyID)
	if id == "" {
		return fmt.Errorf("run id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if surveyID == "" {
		return fmt.Errorf("survey id is required")
	}
	if run.Passes <= 0 {
		return fmt.Errorf("passes must be greater than zero")
	}
	createdAt := run.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	scoresJSON, err := marshalScores(run.Scores)
	if err != nil {
		return err
	}
	stateJSON := string(run.FinalState)
	if strings.TrimSpace(stateJSON) == "" {
		stateJSON = "{}"
	}
	stability := sql.NullFloat64{}
	if run.Stability != nil {
		stability = sql.NullFloat64{Float64: *run.Stability, Valid: true}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO runs (
		   id, user_id, survey_id, passes, created_at,
		   coords2d_x, coords2d_y, coords3d_v, coords3d_a, coords3d_d,
		   stability, scores_json, final_state_json, notes
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		userID,
		surveyID,
		run.Passes,
		toMillis(createdAt),
		run.Coords2DX,
		run.Coords2DY,
		run.Coords3DV,
		run.Coords3DA,
		run.Coords3DD,
		stability,
		scoresJSON,
		stateJSON,
		run.Notes,
	)
	if err != nil {
		if isRunUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID, including its final state.
func (s *Store) GetRun(ctx context.Context, id string) (storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return storage.Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Run{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Run{}, fmt.Errorf("run id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, survey_id, passes, created_at,
		        coords2d_x, coords2d_y, coords3d_v, coords3d_a, coords3d_d,
		        stability, scores_json, notes, final_state_json
		   FROM runs
		  WHERE id = ?`,
		id,
	)

	run, err := scanRun(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Run{}, storage.ErrNotFound
		}
		return storage.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, includeState bool) (storage.Run, error) {
	var run storage.Run
	var createdAt int64
	var stability sql.NullFloat64
	var scoresJSON string
	var stateJSON []byte

	dest := []any{
		&run.ID,
		&run.UserID,
		&run.SurveyID,
		&run.Passes,
		&createdAt,
		&run.Coords2DX,
		&run.Coords2DY,
		&run.Coords3DV,
		&run.Coords3DA,
		&run.Coords3DD,
		&stability,
		&scoresJSON,
		&run.Notes,
	}
	if includeState {
		dest = append(dest, &stateJSON)
	}
	if err := row.Scan(dest...); err != nil {
		return storage.Run{}, err
	}

	run.CreatedAt = fromMillis(createdAt)
	if stability.Valid {
		value := stability.Float64
		run.Stability = &value
	}
	if scoresJSON != "" {
		if err := json.Unmarshal([]byte(scoresJSON), &run.Scores); err != nil {
			return storage.Run{}, fmt.Errorf("decode run scores: %w", err)
		}
	}
	if includeState {
		run.FinalState = json.RawMessage(stateJSON)
	}
	return run, nil
}

func marshalScores(scores map[string]float64) (string, error) {
	if len(scores) == 0 {
		return "{}", nil
	}
	payload, err := json.Marshal(scores)
	if err != nil {
		return "", fmt.Errorf("marshal run scores: %w", err)
	}
	return string(payload), nil
}

func isRunUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "runs.id")
}

var _ storage.RunStore = (*Store)(nil)
var _ storage.AuditEventStore = (*Store)(nil)
