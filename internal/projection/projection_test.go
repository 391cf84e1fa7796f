package projection

import (
	"math"
	"reflect"
	"testing"

	"github.com/louisbranch/ontogenic.space/internal/platform/errors"
)

func lineSamples() []Sample {
	// Two perfectly correlated axes: all variance lives on one
	// component.
	return []Sample{
		{ID: "r1", Label: "u1", Values: map[string]float64{"a": -1, "b": -2}},
		{ID: "r2", Label: "u2", Values: map[string]float64{"a": 0, "b": 0}},
		{ID: "r3", Label: "u3", Values: map[string]float64{"a": 1, "b": 2}},
	}
}

func TestProjectValidation(t *testing.T) {
	tests := []struct {
		name     string
		samples  []Sample
		opts     Options
		wantCode errors.Code
	}{
		{
			name:     "umap unsupported",
			samples:  lineSamples(),
			opts:     Options{Technique: "umap"},
			wantCode: errors.CodeProjectionTechniqueUnsupported,
		},
		{
			name:     "tsne unsupported",
			samples:  lineSamples(),
			opts:     Options{Technique: "tsne"},
			wantCode: errors.CodeProjectionTechniqueUnsupported,
		},
		{
			name:     "one dim too few",
			samples:  lineSamples(),
			opts:     Options{Dims: 1},
			wantCode: errors.CodeProjectionInvalidDims,
		},
		{
			name:     "four dims too many",
			samples:  lineSamples(),
			opts:     Options{Dims: 4},
			wantCode: errors.CodeProjectionInvalidDims,
		},
		{
			name:     "fewer runs than dims",
			samples:  lineSamples()[:1],
			opts:     Options{Dims: 2},
			wantCode: errors.CodeProjectionInsufficientRuns,
		},
		{
			name:     "unknown feature",
			samples:  lineSamples(),
			opts:     Options{Features: []string{"a", "nope"}},
			wantCode: errors.CodeProjectionUnknownFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(tt.samples, tt.opts)
			if err == nil {
				t.Fatal("Project() error = nil, want failure")
			}
			if code := errors.CodeOf(err); code != tt.wantCode {
				t.Errorf("CodeOf() = %v, want %v", code, tt.wantCode)
			}
		})
	}
}

func TestProjectZeroVariance(t *testing.T) {
	same := map[string]float64{"a": 0.5, "b": -0.25}
	samples := []Sample{
		{ID: "r1", Values: same},
		{ID: "r2", Values: same},
		{ID: "r3", Values: same},
	}

	_, err := Project(samples, Options{})
	if err == nil {
		t.Fatal("Project() error = nil, want zero-variance failure")
	}
	if code := errors.CodeOf(err); code != errors.CodeProjectionInsufficientRuns {
		t.Errorf("CodeOf() = %v, want %v", code, errors.CodeProjectionInsufficientRuns)
	}
}

func TestProjectCorrelatedAxes(t *testing.T) {
	result, err := Project(lineSamples(), Options{})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	if result.Technique != TechniquePCA || result.Dims != 2 {
		t.Errorf("result meta = %s/%d, want pca/2", result.Technique, result.Dims)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(result.Features, want) {
		t.Errorf("Features = %v, want %v", result.Features, want)
	}
	if len(result.ExplainedVariance) != 2 {
		t.Fatalf("explained variance entries = %d, want 2", len(result.ExplainedVariance))
	}
	if math.Abs(result.ExplainedVariance[0]-1) > 1e-6 {
		t.Errorf("explained[0] = %v, want 1 (all variance on one axis)", result.ExplainedVariance[0])
	}
	if result.ExplainedVariance[1] > 1e-6 {
		t.Errorf("explained[1] = %v, want 0", result.ExplainedVariance[1])
	}

	sqrt2 := math.Sqrt2
	wantFirst := []float64{-sqrt2, 0, sqrt2}
	for i, p := range result.Points {
		if math.Abs(p.Coords[0]-wantFirst[i]) > 1e-6 {
			t.Errorf("point %d first coord = %v, want %v", i, p.Coords[0], wantFirst[i])
		}
		if math.Abs(p.Coords[1]) > 1e-6 {
			t.Errorf("point %d second coord = %v, want 0", i, p.Coords[1])
		}
	}
	if result.Points[0].ID != "r1" || result.Points[0].Label != "u1" {
		t.Errorf("point identity = %+v, want r1/u1", result.Points[0])
	}
}

func TestProjectFeatureUnionDefaults(t *testing.T) {
	samples := []Sample{
		{ID: "r1", Values: map[string]float64{"valence": 0.5}},
		{ID: "r2", Values: map[string]float64{"arousal": -0.5}},
		{ID: "r3", Values: map[string]float64{"valence": -0.5, "arousal": 0.5}},
	}

	result, err := Project(samples, Options{})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if want := []string{"arousal", "valence"}; !reflect.DeepEqual(result.Features, want) {
		t.Errorf("Features = %v, want sorted union %v", result.Features, want)
	}
}

func TestProjectThreeDims(t *testing.T) {
	samples := []Sample{
		{ID: "r1", Values: map[string]float64{"x": 1, "y": 0.1, "z": -0.2}},
		{ID: "r2", Values: map[string]float64{"x": -0.5, "y": 0.9, "z": 0.3}},
		{ID: "r3", Values: map[string]float64{"x": 0.2, "y": -0.7, "z": 0.8}},
		{ID: "r4", Values: map[string]float64{"x": -0.6, "y": 0.4, "z": -0.9}},
	}

	result, err := Project(samples, Options{Dims: 3})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	if len(result.ExplainedVariance) != 3 {
		t.Fatalf("explained entries = %d, want 3", len(result.ExplainedVariance))
	}
	var sum float64
	prev := math.Inf(1)
	for i, ratio := range result.ExplainedVariance {
		if ratio < 0 || ratio > 1 {
			t.Errorf("explained[%d] = %v outside [0, 1]", i, ratio)
		}
		if ratio > prev+1e-9 {
			t.Errorf("explained ratios not descending: %v", result.ExplainedVariance)
		}
		prev = ratio
		sum += ratio
	}
	if sum > 1+1e-6 {
		t.Errorf("explained ratios sum to %v, want at most 1", sum)
	}
	for _, p := range result.Points {
		if len(p.Coords) != 3 {
			t.Fatalf("point coords = %d, want 3", len(p.Coords))
		}
		for _, c := range p.Coords {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				t.Fatalf("non-finite coordinate %v", c)
			}
		}
	}
}

func TestProjectDeterministic(t *testing.T) {
	a, err := Project(lineSamples(), Options{Dims: 2})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	b, err := Project(lineSamples(), Options{Dims: 2})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different projections")
	}
}
