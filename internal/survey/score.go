package survey

import (
	"math"
	"strconv"

	"github.com/louisbranch/ontogenic.space/internal/platform/errors"
)

// Score aggregates Likert responses into trait scores in [-1, 1],
// keyed by each item's target axis. Responses are keyed by item ID;
// missing items are skipped and unknown response keys are ignored,
// so partial submissions score cleanly. A response outside the
// survey's scale bounds fails with SURVEY_RESPONSE_OUT_OF_RANGE.
func Score(s Survey, responses map[string]int) (map[string]float64, error) {
	acc := make(map[string]float64)
	wsum := make(map[string]float64)
	for _, item := range s.Items {
		raw, ok := responses[item.ID]
		if !ok {
			continue
		}
		if raw < s.ScaleMin || raw > s.ScaleMax {
			return nil, errors.WithMetadata(errors.CodeSurveyResponseOutOfRange,
				"likert response out of bounds", map[string]string{
					"Item":     item.ID,
					"Response": strconv.Itoa(raw),
					"Min":      strconv.Itoa(s.ScaleMin),
					"Max":      strconv.Itoa(s.ScaleMax),
				})
		}
		val := normalizeLikert(raw, s.ScaleMin, s.ScaleMax)
		if item.Reverse {
			val = -val
		}
		acc[item.MapsTo] += val * item.Weight
		wsum[item.MapsTo] += item.Weight
	}
	for k := range acc {
		acc[k] = clamp(acc[k] / math.Max(wsum[k], 1e-6))
	}
	return acc, nil
}

// normalizeLikert maps a response in [lo, hi] onto [-1, 1], centered
// at the scale midpoint. Callers validate bounds first.
func normalizeLikert(x, lo, hi int) float64 {
	mid := float64(lo+hi) / 2
	half := float64(hi-lo) / 2
	return (float64(x) - mid) / half
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
