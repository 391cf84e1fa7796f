package domain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/glyph"
	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"github.com/louisbranch/ontogenic.space/internal/survey"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeRunService struct {
	executeOutcome rundomain.Outcome
	executeErr     error
	executeIn      *rundomain.ExecuteInput

	created   rundomain.CreatedRun
	createErr error
	createIn  *rundomain.CreateInput

	getRecord storage.Run
	getErr    error
	getRunID  string

	listResult rundomain.ListResult
	listErr    error
	listIn     *rundomain.ListInput

	compareByUser map[string][]storage.Run
	compareErr    error
	compareIn     *rundomain.CompareInput

	projection    rundomain.ProjectionResult
	projectionErr error
	projectionIn  *rundomain.ProjectionInput

	stats    storage.RunStats
	statsErr error
}

func (f *fakeRunService) Execute(_ context.Context, in rundomain.ExecuteInput) (rundomain.Outcome, error) {
	f.executeIn = &in
	if f.executeErr != nil {
		return rundomain.Outcome{}, f.executeErr
	}
	return f.executeOutcome, nil
}

func (f *fakeRunService) CreateRun(_ context.Context, in rundomain.CreateInput) (rundomain.CreatedRun, error) {
	f.createIn = &in
	if f.createErr != nil {
		return rundomain.CreatedRun{}, f.createErr
	}
	return f.created, nil
}

func (f *fakeRunService) GetRun(_ context.Context, runID string) (storage.Run, error) {
	f.getRunID = runID
	if f.getErr != nil {
		return storage.Run{}, f.getErr
	}
	return f.getRecord, nil
}

func (f *fakeRunService) ListRuns(_ context.Context, in rundomain.ListInput) (rundomain.ListResult, error) {
	f.listIn = &in
	if f.listErr != nil {
		return rundomain.ListResult{}, f.listErr
	}
	return f.listResult, nil
}

func (f *fakeRunService) CompareRuns(_ context.Context, in rundomain.CompareInput) (map[string][]storage.Run, error) {
	f.compareIn = &in
	if f.compareErr != nil {
		return nil, f.compareErr
	}
	return f.compareByUser, nil
}

func (f *fakeRunService) Projection(_ context.Context, in rundomain.ProjectionInput) (rundomain.ProjectionResult, error) {
	f.projectionIn = &in
	if f.projectionErr != nil {
		return rundomain.ProjectionResult{}, f.projectionErr
	}
	return f.projection, nil
}

func (f *fakeRunService) Stats(_ context.Context) (storage.RunStats, error) {
	if f.statsErr != nil {
		return storage.RunStats{}, f.statsErr
	}
	return f.stats, nil
}

func testOutcome() rundomain.Outcome {
	scores := map[string]float64{"valence": 0.5, "arousal": 0.2, "extraversion": 0.3}
	return rundomain.Outcome{
		Scores:    scores,
		Placement: survey.PlaceOnContinuum(scores),
		FinalState: glyph.Snapshot{
			Beliefs: map[string]glyph.Value{glyph.StabilityBelief: glyph.Number(0.42)},
			Traits:  map[string]float64{"valence": 0.5},
		},
		History: []string{"sigil_plex: seeded traits"},
		Pipeline: rundomain.Pipeline{
			SurveyID: survey.DefaultSurveyID,
			Passes:   3,
			Glyphs:   []string{"sigil_plex", "omega_contour"},
		},
	}
}

func testStoredRun(id, userID string, createdAt time.Time) storage.Run {
	stability := 0.42
	return storage.Run{
		ID:        id,
		UserID:    userID,
		SurveyID:  survey.DefaultSurveyID,
		Passes:    3,
		CreatedAt: createdAt,
		Coords2DX: 0.3,
		Coords2DY: 0.1,
		Coords3DV: 0.5,
		Coords3DA: 0.2,
		Coords3DD: 0.0,
		Stability: &stability,
		Scores:    map[string]float64{"valence": 0.5},
		Notes:     "baseline",
	}
}

func assertInvocationMeta(t *testing.T, toolResult *mcp.CallToolResult) {
	t.Helper()
	if toolResult == nil {
		t.Fatal("expected non-nil tool result")
	}
	invocationID, _ := toolResult.Meta[InvocationIDMetaKey].(string)
	if invocationID == "" {
		t.Fatalf("expected invocation id in tool result meta, got %v", toolResult.Meta)
	}
}

func TestSurveyGetHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := SurveyGetHandler()
		toolResult, result, err := handler(context.Background(), nil, SurveyGetInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.ID != survey.DefaultSurveyID {
			t.Errorf("expected survey id %q, got %q", survey.DefaultSurveyID, result.ID)
		}
		want := survey.Build("")
		if len(result.Items) != len(want.Items) {
			t.Fatalf("expected %d items, got %d", len(want.Items), len(result.Items))
		}
		if result.Items[0].Prompt == "" {
			t.Error("expected localized prompt on first item")
		}
		if result.ScaleMin != survey.ScaleMin || result.ScaleMax != survey.ScaleMax {
			t.Errorf("scale = [%d, %d], want [%d, %d]", result.ScaleMin, result.ScaleMax, survey.ScaleMin, survey.ScaleMax)
		}
	})

	t.Run("localizes prompts", func(t *testing.T) {
		handler := SurveyGetHandler()
		_, result, err := handler(context.Background(), nil, SurveyGetInput{Locale: "pt-BR"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := survey.Build("pt-BR")
		if result.ScaleLow != want.ScaleLow {
			t.Errorf("expected scale_low %q, got %q", want.ScaleLow, result.ScaleLow)
		}
		if result.Items[0].Prompt != want.Items[0].Prompt {
			t.Errorf("expected prompt %q, got %q", want.Items[0].Prompt, result.Items[0].Prompt)
		}
	})
}

func TestResponsesScoreHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := ResponsesScoreHandler()
		toolResult, result, err := handler(context.Background(), nil, ResponsesScoreInput{
			Responses: map[string]int{"pad_valence_1": 6, "pad_valence_2": 2},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.SurveyID != survey.DefaultSurveyID {
			t.Errorf("expected survey id %q, got %q", survey.DefaultSurveyID, result.SurveyID)
		}
		if result.Scores["valence"] <= 0 {
			t.Errorf("expected positive valence, got %v", result.Scores["valence"])
		}
	})

	t.Run("out of range response", func(t *testing.T) {
		handler := ResponsesScoreHandler()
		_, _, err := handler(context.Background(), nil, ResponsesScoreInput{
			Responses: map[string]int{"pad_valence_1": 9},
		})
		if err == nil {
			t.Fatal("expected error for out-of-range response")
		}
	})
}

func TestPlacementComputeHandler(t *testing.T) {
	handler := PlacementComputeHandler()
	toolResult, result, err := handler(context.Background(), nil, PlacementComputeInput{
		Scores: map[string]float64{"valence": 0.5, "arousal": 0.2, "dominance": 0.1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertInvocationMeta(t, toolResult)
	wantAxes := []string{"valence", "arousal", "dominance"}
	if len(result.Placement.Axes) != len(wantAxes) {
		t.Fatalf("expected %d axes, got %d", len(wantAxes), len(result.Placement.Axes))
	}
	for i, axis := range wantAxes {
		if result.Placement.Axes[i] != axis {
			t.Errorf("axis[%d] = %q, want %q", i, result.Placement.Axes[i], axis)
		}
	}
	if len(result.Placement.Coords2D) != 2 || len(result.Placement.Coords3D) != 3 {
		t.Errorf("coords lengths = %d/%d, want 2/3", len(result.Placement.Coords2D), len(result.Placement.Coords3D))
	}
	if result.Placement.Coords3D[0] != 0.5 {
		t.Errorf("coords3d valence = %v, want 0.5", result.Placement.Coords3D[0])
	}
}

func TestMachineRunHandler(t *testing.T) {
	t.Run("ephemeral run", func(t *testing.T) {
		service := &fakeRunService{executeOutcome: testOutcome()}
		var notified []string
		notify := func(_ context.Context, uri string) { notified = append(notified, uri) }

		handler := MachineRunHandler(service, notify)
		toolResult, result, err := handler(context.Background(), nil, MachineRunInput{
			Responses: map[string]int{"pad_valence_1": 6},
			Passes:    3,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.RunID != "" {
			t.Errorf("expected empty run_id for ephemeral run, got %q", result.RunID)
		}
		if result.SurveyID != survey.DefaultSurveyID {
			t.Errorf("expected survey id %q, got %q", survey.DefaultSurveyID, result.SurveyID)
		}
		if result.Passes != 3 {
			t.Errorf("expected passes 3, got %d", result.Passes)
		}
		if result.Stability == nil || *result.Stability != 0.42 {
			t.Errorf("expected stability 0.42, got %v", result.Stability)
		}
		if _, ok := result.FinalState["beliefs"]; !ok {
			t.Error("expected beliefs in final state document")
		}
		if len(notified) != 0 {
			t.Errorf("expected no resource notifications for ephemeral run, got %v", notified)
		}
		if service.executeIn == nil || service.executeIn.Passes != 3 {
			t.Errorf("expected execute input with passes 3, got %+v", service.executeIn)
		}
	})

	t.Run("persisted run", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		service := &fakeRunService{created: rundomain.CreatedRun{
			Record:  testStoredRun("r1", "alice", createdAt),
			Outcome: testOutcome(),
		}}
		var notified []string
		notify := func(_ context.Context, uri string) { notified = append(notified, uri) }

		handler := MachineRunHandler(service, notify)
		_, result, err := handler(context.Background(), nil, MachineRunInput{
			UserID:    "alice",
			Responses: map[string]int{"pad_valence_1": 6},
			Notes:     "baseline",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.RunID != "r1" {
			t.Errorf("expected run_id r1, got %q", result.RunID)
		}
		if result.UserID != "alice" {
			t.Errorf("expected user_id alice, got %q", result.UserID)
		}
		if result.CreatedAt != "2026-03-14T10:30:00Z" {
			t.Errorf("expected created_at 2026-03-14T10:30:00Z, got %q", result.CreatedAt)
		}
		if len(notified) != 2 {
			t.Fatalf("expected 2 notifications, got %d: %v", len(notified), notified)
		}
		if notified[0] != RunsListResource().URI {
			t.Errorf("expected first notification %q, got %q", RunsListResource().URI, notified[0])
		}
		if notified[1] != "run://r1" {
			t.Errorf("expected second notification run://r1, got %q", notified[1])
		}
		if service.createIn == nil || service.createIn.Notes != "baseline" {
			t.Errorf("expected create input with notes, got %+v", service.createIn)
		}
	})

	t.Run("service error", func(t *testing.T) {
		service := &fakeRunService{executeErr: fmt.Errorf("machine exploded")}
		handler := MachineRunHandler(service, nil)
		_, _, err := handler(context.Background(), nil, MachineRunInput{
			Responses: map[string]int{"pad_valence_1": 6},
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		handler := MachineRunHandler(nil, nil)
		_, _, err := handler(context.Background(), nil, MachineRunInput{})
		if err == nil {
			t.Fatal("expected error for nil service")
		}
	})
}

func TestRunsListHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		service := &fakeRunService{listResult: rundomain.ListResult{
			Runs:     []storage.Run{testStoredRun("r1", "alice", createdAt)},
			Total:    1,
			Page:     1,
			PageSize: 20,
		}}
		handler := RunsListHandler(service)
		toolResult, result, err := handler(context.Background(), nil, RunsListInput{
			UserID: "alice",
			Since:  "2026-03-01T00:00:00Z",
			Filter: "passes >= 2",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.Total != 1 || len(result.Runs) != 1 {
			t.Fatalf("expected one run, got total %d len %d", result.Total, len(result.Runs))
		}
		if result.Runs[0].ID != "r1" {
			t.Errorf("expected run r1, got %q", result.Runs[0].ID)
		}
		if result.Runs[0].CreatedAt != "2026-03-14T10:30:00Z" {
			t.Errorf("expected RFC3339 created_at, got %q", result.Runs[0].CreatedAt)
		}
		if service.listIn == nil {
			t.Fatal("expected list input to be captured")
		}
		if service.listIn.UserID != "alice" || service.listIn.Filter != "passes >= 2" {
			t.Errorf("unexpected list input: %+v", service.listIn)
		}
		wantSince := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		if service.listIn.Since == nil || !service.listIn.Since.Equal(wantSince) {
			t.Errorf("expected since %v, got %v", wantSince, service.listIn.Since)
		}
	})

	t.Run("malformed since", func(t *testing.T) {
		handler := RunsListHandler(&fakeRunService{})
		_, _, err := handler(context.Background(), nil, RunsListInput{Since: "yesterday"})
		if err == nil {
			t.Fatal("expected error for malformed since timestamp")
		}
	})

	t.Run("service error", func(t *testing.T) {
		service := &fakeRunService{listErr: fmt.Errorf("store offline")}
		handler := RunsListHandler(service)
		_, _, err := handler(context.Background(), nil, RunsListInput{})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRunsGetHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		service := &fakeRunService{getRecord: testStoredRun("r1", "alice", createdAt)}
		handler := RunsGetHandler(service)
		toolResult, result, err := handler(context.Background(), nil, RunsGetInput{RunID: "r1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.Run.ID != "r1" || result.Run.UserID != "alice" {
			t.Errorf("unexpected run: %+v", result.Run)
		}
		if result.Run.Stability == nil || *result.Run.Stability != 0.42 {
			t.Errorf("expected stability 0.42, got %v", result.Run.Stability)
		}
		if len(result.Run.Coords2D) != 2 || result.Run.Coords2D[0] != 0.3 {
			t.Errorf("unexpected coords2d: %v", result.Run.Coords2D)
		}
		if service.getRunID != "r1" {
			t.Errorf("expected lookup of r1, got %q", service.getRunID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		service := &fakeRunService{getErr: fmt.Errorf("run not found")}
		handler := RunsGetHandler(service)
		_, _, err := handler(context.Background(), nil, RunsGetInput{RunID: "missing"})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRunsCompareHandler(t *testing.T) {
	t.Run("success with default limit", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		service := &fakeRunService{compareByUser: map[string][]storage.Run{
			"alice": {testStoredRun("r1", "alice", createdAt)},
			"bob":   {testStoredRun("r2", "bob", createdAt)},
		}}
		handler := RunsCompareHandler(service)
		toolResult, result, err := handler(context.Background(), nil, RunsCompareInput{
			UserIDs: []string{"alice", "bob"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.TotalUsers != 2 {
			t.Errorf("expected 2 users, got %d", result.TotalUsers)
		}
		if result.LimitPerUser != rundomain.DefaultCompareLimit {
			t.Errorf("expected default limit %d, got %d", rundomain.DefaultCompareLimit, result.LimitPerUser)
		}
		if len(result.Users["alice"]) != 1 {
			t.Errorf("expected one run for alice, got %d", len(result.Users["alice"]))
		}
	})

	t.Run("empty users", func(t *testing.T) {
		service := &fakeRunService{compareErr: fmt.Errorf("at least one user id is required")}
		handler := RunsCompareHandler(service)
		_, _, err := handler(context.Background(), nil, RunsCompareInput{})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRunsStatsHandler(t *testing.T) {
	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	mean := 0.37
	service := &fakeRunService{stats: storage.RunStats{
		TotalRuns:     3,
		UniqueUsers:   2,
		FirstRunAt:    &first,
		LastRunAt:     &last,
		MeanStability: &mean,
		RunsByUser:    map[string]int{"alice": 2, "bob": 1},
	}}
	handler := RunsStatsHandler(service)
	toolResult, result, err := handler(context.Background(), nil, RunsStatsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertInvocationMeta(t, toolResult)
	if result.TotalRuns != 3 || result.UniqueUsers != 2 {
		t.Errorf("unexpected totals: %+v", result)
	}
	if result.FirstRunAt != "2026-03-01T00:00:00Z" {
		t.Errorf("expected first_run_at 2026-03-01T00:00:00Z, got %q", result.FirstRunAt)
	}
	if result.LastRunAt != "2026-03-14T10:30:00Z" {
		t.Errorf("expected last_run_at 2026-03-14T10:30:00Z, got %q", result.LastRunAt)
	}
	if result.MeanStability == nil || *result.MeanStability != 0.37 {
		t.Errorf("expected mean stability 0.37, got %v", result.MeanStability)
	}
	if result.RunsByUser["alice"] != 2 {
		t.Errorf("expected 2 runs for alice, got %d", result.RunsByUser["alice"])
	}
}

func TestRunsProjectionHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		stability := 0.42
		service := &fakeRunService{projection: rundomain.ProjectionResult{
			Technique: "pca",
			Dims:      2,
			Points: []rundomain.ProjectedRun{
				{RunID: "r1", UserID: "alice", SurveyID: survey.DefaultSurveyID, CreatedAt: createdAt, Stability: &stability, Coords: []float64{0.1, -0.2}},
			},
			ExplainedVariance: []float64{0.8, 0.2},
			FeatureNames:      []string{"valence", "arousal"},
		}}
		handler := RunsProjectionHandler(service)
		toolResult, result, err := handler(context.Background(), nil, RunsProjectionInput{Dims: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertInvocationMeta(t, toolResult)
		if result.Technique != "pca" || result.Dims != 2 {
			t.Errorf("unexpected projection header: %+v", result)
		}
		if len(result.Points) != 1 || result.Points[0].RunID != "r1" {
			t.Fatalf("unexpected points: %+v", result.Points)
		}
		if result.Points[0].CreatedAt != "2026-03-14T10:30:00Z" {
			t.Errorf("expected RFC3339 created_at, got %q", result.Points[0].CreatedAt)
		}
		if len(result.ExplainedVariance) != 2 {
			t.Errorf("expected 2 variance ratios, got %d", len(result.ExplainedVariance))
		}
		if service.projectionIn == nil || service.projectionIn.Dims != 2 {
			t.Errorf("expected projection input with dims 2, got %+v", service.projectionIn)
		}
	})

	t.Run("malformed until", func(t *testing.T) {
		handler := RunsProjectionHandler(&fakeRunService{})
		_, _, err := handler(context.Background(), nil, RunsProjectionInput{Until: "not-a-time"})
		if err == nil {
			t.Fatal("expected error for malformed until timestamp")
		}
	})

	t.Run("insufficient runs", func(t *testing.T) {
		service := &fakeRunService{projectionErr: fmt.Errorf("not enough runs")}
		handler := RunsProjectionHandler(service)
		_, _, err := handler(context.Background(), nil, RunsProjectionInput{})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
