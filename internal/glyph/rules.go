package glyph

import (
	"math"
	"math/rand"
)

// Rule identifies one of the self-installed transformation rules.
// The set is closed: MuDelta installs from this enum and snapshots
// degrade rules to the names returned by Name.
type Rule int

const (
	// RuleReduceExtremes damps traits whose live and dual values
	// disagree too strongly, accruing tension for each damped trait.
	RuleReduceExtremes Rule = iota
	// RuleCounterfactualBlend pulls the live traits toward one
	// randomly chosen counterfactual.
	RuleCounterfactualBlend
)

// tensionThreshold is the disagreement above which a trait counts as
// extreme. With traits in [-1, 1] the live/dual gap tops out at 2.
const tensionThreshold = 1.5

// defaultBlendWeight applies when a counterfactual carries a zero
// weight, which the blend rule reads as unset.
const defaultBlendWeight = 0.2

// Name returns the rule's wire name, the identity snapshots carry.
func (r Rule) Name() string {
	switch r {
	case RuleReduceExtremes:
		return "rule_reduce_extremes"
	case RuleCounterfactualBlend:
		return "rule_counterfactual_blend"
	default:
		return "rule_unknown"
	}
}

// ParseRule maps a wire name back to its Rule. ok is false for names
// outside the closed set.
func ParseRule(name string) (Rule, bool) {
	switch name {
	case "rule_reduce_extremes":
		return RuleReduceExtremes, true
	case "rule_counterfactual_blend":
		return RuleCounterfactualBlend, true
	default:
		return 0, false
	}
}

func (r Rule) apply(s *State, rng *rand.Rand) {
	switch r {
	case RuleReduceExtremes:
		for k, v := range s.Traits {
			dual, ok := s.DualTraits[k]
			if !ok {
				dual = -v
			}
			if math.Abs(v+dual) > tensionThreshold {
				s.Traits[k] = clamp(v * 0.9)
				s.Tensions[k] += 0.1
			}
		}
	case RuleCounterfactualBlend:
		if len(s.Counterfactuals) == 0 {
			return
		}
		cf := s.Counterfactuals[rng.Intn(len(s.Counterfactuals))]
		w := cf.Weight
		if w == 0 {
			w = defaultBlendWeight
		}
		for k, v := range cf.Traits {
			s.Traits[k] = clamp((1-w)*s.Traits[k] + w*v)
		}
	}
}

// clamp confines a trait value to [-1, 1].
func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
