// Package projection reduces scored run profiles to low-dimensional
// coordinates for plotting. The only implemented technique is PCA,
// computed by power iteration with deflation over the standardized
// feature covariance; there is no external math dependency and no
// randomness, so projections are fully deterministic.
package projection

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/platform/errors"
)

// TechniquePCA is the supported projection technique.
const TechniquePCA = "pca"

const (
	maxPowerIterations = 200
	convergenceEps     = 1e-10
)

// Sample is one run's feature vector. Values are keyed by score axis;
// axes missing from a sample read as 0.
type Sample struct {
	ID     string
	Label  string
	Values map[string]float64
}

// Point is a projected sample.
type Point struct {
	ID     string    `json:"id"`
	Label  string    `json:"label,omitempty"`
	Coords []float64 `json:"coords"`
}

// Result carries the projected points along with the feature order
// and per-component explained variance ratios.
type Result struct {
	Technique         string    `json:"technique"`
	Dims              int       `json:"dims"`
	Features          []string  `json:"features"`
	Points            []Point   `json:"points"`
	ExplainedVariance []float64 `json:"explained_variance"`
}

// Options configure a projection. Zero values select the defaults:
// PCA, 2 dimensions, and the sorted union of all sample axes.
type Options struct {
	Technique string
	Dims      int
	Features  []string
}

// Project reduces the samples to Dims coordinates. It fails when the
// technique is not PCA, the dimension count is outside [2, 3], fewer
// samples than dimensions exist, a requested feature appears in no
// sample, or the samples carry no variance at all.
func Project(samples []Sample, opts Options) (Result, error) {
	technique := opts.Technique
	if technique == "" {
		technique = TechniquePCA
	}
	if technique != TechniquePCA {
		return Result{}, errors.WithMetadata(errors.CodeProjectionTechniqueUnsupported,
			"unsupported projection technique", map[string]string{
				"Technique": technique,
				"Supported": TechniquePCA,
			})
	}

	dims := opts.Dims
	if dims == 0 {
		dims = 2
	}
	if dims < 2 || dims > 3 {
		return Result{}, errors.WithMetadata(errors.CodeProjectionInvalidDims,
			"projection dims must be 2 or 3", map[string]string{
				"Dims": strconv.Itoa(dims),
			})
	}

	if len(samples) < dims {
		return Result{}, errors.WithMetadata(errors.CodeProjectionInsufficientRuns,
			"not enough runs to project", map[string]string{
				"Have": strconv.Itoa(len(samples)),
				"Need": strconv.Itoa(dims),
			})
	}

	features, err := resolveFeatures(samples, opts.Features)
	if err != nil {
		return Result{}, err
	}

	matrix := buildMatrix(samples, features)
	standardize(matrix)

	cov := covariance(matrix)
	total := trace(cov)
	if total < convergenceEps {
		return Result{}, errors.WithMetadata(errors.CodeProjectionInsufficientRuns,
			"runs carry no variance to project", map[string]string{
				"Have":   strconv.Itoa(len(samples)),
				"Reason": "zero_variance",
			})
	}

	components := make([][]float64, 0, dims)
	explained := make([]float64, 0, dims)
	for c := 0; c < dims; c++ {
		vec, lambda := principalComponent(cov)
		components = append(components, vec)
		explained = append(explained, math.Max(lambda, 0)/total)
		deflate(cov, vec, lambda)
	}

	points := make([]Point, len(samples))
	for i, sample := range samples {
		coords := make([]float64, dims)
		for c, comp := range components {
			coords[c] = dot(matrix[i], comp)
		}
		points[i] = Point{ID: sample.ID, Label: sample.Label, Coords: coords}
	}

	return Result{
		Technique:         technique,
		Dims:              dims,
		Features:          features,
		Points:            points,
		ExplainedVariance: explained,
	}, nil
}

// resolveFeatures returns the requested feature order, or the sorted
// union of every sample's axes when none is given. A requested
// feature no sample carries is an error; a feature merely missing
// from some samples reads as 0 there.
func resolveFeatures(samples []Sample, requested []string) ([]string, error) {
	present := make(map[string]struct{})
	for _, s := range samples {
		for k := range s.Values {
			present[k] = struct{}{}
		}
	}
	if len(requested) == 0 {
		features := make([]string, 0, len(present))
		for k := range present {
			features = append(features, k)
		}
		sort.Strings(features)
		return features, nil
	}
	var missing []string
	for _, f := range requested {
		if _, ok := present[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.WithMetadata(errors.CodeProjectionUnknownFeature,
			"requested features missing from every run", map[string]string{
				"Feature": strings.Join(missing, ","),
			})
	}
	return append([]string(nil), requested...), nil
}

func buildMatrix(samples []Sample, features []string) [][]float64 {
	matrix := make([][]float64, len(samples))
	for i, s := range samples {
		row := make([]float64, len(features))
		for j, f := range features {
			row[j] = s.Values[f]
		}
		matrix[i] = row
	}
	return matrix
}

// standardize mean-centers every column and scales it to unit sample
// variance. Constant columns are centered only, leaving them at zero.
func standardize(matrix [][]float64) {
	if len(matrix) == 0 {
		return
	}
	n := float64(len(matrix))
	cols := len(matrix[0])
	for j := 0; j < cols; j++ {
		var mean float64
		for i := range matrix {
			mean += matrix[i][j]
		}
		mean /= n
		var variance float64
		for i := range matrix {
			matrix[i][j] -= mean
			variance += matrix[i][j] * matrix[i][j]
		}
		if len(matrix) > 1 {
			variance /= n - 1
		}
		if std := math.Sqrt(variance); std > convergenceEps {
			for i := range matrix {
				matrix[i][j] /= std
			}
		}
	}
}

// covariance returns the sample covariance of the (already centered)
// matrix columns.
func covariance(matrix [][]float64) [][]float64 {
	n := len(matrix)
	cols := len(matrix[0])
	cov := make([][]float64, cols)
	for a := 0; a < cols; a++ {
		cov[a] = make([]float64, cols)
		for b := a; b < cols; b++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += matrix[i][a] * matrix[i][b]
			}
			if n > 1 {
				sum /= float64(n - 1)
			}
			cov[a][b] = sum
		}
	}
	for a := 0; a < cols; a++ {
		for b := 0; b < a; b++ {
			cov[a][b] = cov[b][a]
		}
	}
	return cov
}

func trace(m [][]float64) float64 {
	var sum float64
	for i := range m {
		sum += m[i][i]
	}
	return sum
}

// principalComponent power-iterates to the dominant eigenvector of
// the matrix and its eigenvalue. A matrix with no remaining variance
// yields a zero vector and eigenvalue 0.
func principalComponent(m [][]float64) ([]float64, float64) {
	size := len(m)
	vec := make([]float64, size)
	// A deterministic, slightly uneven start avoids getting stuck
	// orthogonal to the dominant direction.
	for i := range vec {
		vec[i] = 1 + float64(i)*1e-3
	}
	normalize(vec)

	for iter := 0; iter < maxPowerIterations; iter++ {
		next := matVec(m, vec)
		if norm(next) < convergenceEps {
			return make([]float64, size), 0
		}
		normalize(next)
		if delta(next, vec) < convergenceEps {
			vec = next
			break
		}
		vec = next
	}

	orient(vec)
	lambda := dot(vec, matVec(m, vec))
	if lambda < convergenceEps {
		return make([]float64, size), 0
	}
	return vec, lambda
}

// deflate removes the found component so the next iteration converges
// to the following eigenvector.
func deflate(m [][]float64, vec []float64, lambda float64) {
	if lambda == 0 {
		return
	}
	for a := range m {
		for b := range m[a] {
			m[a][b] -= lambda * vec[a] * vec[b]
		}
	}
}

// orient fixes the eigenvector's sign so the entry with the largest
// magnitude is positive, keeping projections reproducible.
func orient(vec []float64) {
	maxIdx := 0
	for i, v := range vec {
		if math.Abs(v) > math.Abs(vec[maxIdx]) {
			maxIdx = i
		}
	}
	if vec[maxIdx] < 0 {
		for i := range vec {
			vec[i] = -vec[i]
		}
	}
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i := range m {
		out[i] = dot(m[i], v)
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

func normalize(v []float64) {
	n := norm(v)
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}

func delta(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
