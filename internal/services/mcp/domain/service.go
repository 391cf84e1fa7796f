package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/glyph"
	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
)

// RunService is the slice of the run domain service MCP handlers depend on.
type RunService interface {
	Execute(ctx context.Context, in rundomain.ExecuteInput) (rundomain.Outcome, error)
	CreateRun(ctx context.Context, in rundomain.CreateInput) (rundomain.CreatedRun, error)
	GetRun(ctx context.Context, runID string) (storage.Run, error)
	ListRuns(ctx context.Context, in rundomain.ListInput) (rundomain.ListResult, error)
	CompareRuns(ctx context.Context, in rundomain.CompareInput) (map[string][]storage.Run, error)
	Projection(ctx context.Context, in rundomain.ProjectionInput) (rundomain.ProjectionResult, error)
	Stats(ctx context.Context) (storage.RunStats, error)
}

// formatTimestamp renders a timestamp as RFC3339 for tool and resource payloads.
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

// parseInputTime reads an optional RFC3339 tool input field.
func parseInputTime(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: expected RFC3339 timestamp, got %q", field, raw)
	}
	return &ts, nil
}

// snapshotDocument converts a machine snapshot into a generic JSON document.
// Tool results carry the state as a free-form object so MCP schema
// reflection never depends on the snapshot's union value encoding.
func snapshotDocument(snapshot glyph.Snapshot) (map[string]any, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal final state: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode final state: %w", err)
	}
	return doc, nil
}

// stateDocument converts a stored run's serialized snapshot into a generic
// JSON document; empty state reads as nil.
func stateDocument(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode final state: %w", err)
	}
	return doc, nil
}
