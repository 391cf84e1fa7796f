package glyph

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
)

// Stage is one step of the pipeline. Apply mutates the state in place;
// stages that need randomness draw from rng and nothing else.
type Stage interface {
	Name() string
	Apply(s *State, rng *rand.Rand)
}

// StabilityBelief is the belief key OmegaContour writes its stability
// score under and UnknownGlyph reads it back from.
const StabilityBelief = "anti_consistent_stability"

// baselineTension seeds the tension map when a pass reaches
// OmegaContour without any accrued tension.
const baselineTension = "_baseline"

// DeltaEmpty surveys the state for structured absences: beliefs
// holding the absence marker and traits recorded as NaN. Each absent
// key gains an absence node in the hypergraph, and one trace line
// lists the sorted distinct keys.
type DeltaEmpty struct{}

func (DeltaEmpty) Name() string { return "DeltaEmpty" }

func (d DeltaEmpty) Apply(s *State, _ *rand.Rand) {
	seen := make(map[string]struct{})
	for k, v := range s.Beliefs {
		if v.IsAbsent() {
			seen[k] = struct{}{}
		}
	}
	for k, v := range s.Traits {
		if math.IsNaN(v) {
			seen[k] = struct{}{}
		}
	}
	absences := make([]string, 0, len(seen))
	for k := range seen {
		absences = append(absences, k)
		s.Hyper.AddNode(Presemantic{
			ID:      "absence::" + k,
			Payload: map[string]any{"kind": "absence", "key": k},
		})
	}
	sort.Strings(absences)
	s.Logf("[%s] absences=%v", d.Name(), absences)
}

// LambdaNull derives the anti-trait mirror: for every trait t the dual
// map gains -t. The previous dual map is discarded wholesale, so duals
// never go stale against the live traits.
type LambdaNull struct{}

func (LambdaNull) Name() string { return "LambdaNull" }

func (l LambdaNull) Apply(s *State, _ *rand.Rand) {
	dual := make(map[string]float64, len(s.Traits))
	for k, v := range s.Traits {
		dual[k] = -v
	}
	s.DualTraits = dual
	s.Logf("[%s] dualized %d traits", l.Name(), len(dual))
}

// PsiInvert hallucinates counterfactual selves. It picks the TopK
// traits by absolute value, then emits Samples variants in which each
// chosen axis is flipped and jittered by ±Noise, every absent belief
// is forced to true, and the weight is 1/Samples. Counterfactuals
// accumulate across passes.
type PsiInvert struct {
	TopK    int
	Samples int
	Noise   float64
}

func (PsiInvert) Name() string { return "PsiInvert" }

func (p PsiInvert) Apply(s *State, rng *rand.Rand) {
	axes := topTraits(s.Traits, p.TopK)
	var absents []string
	for k, v := range s.Beliefs {
		if v.IsAbsent() {
			absents = append(absents, k)
		}
	}
	sort.Strings(absents)

	for i := 0; i < p.Samples; i++ {
		cf := Counterfactual{
			Traits:  make(map[string]float64, len(s.Traits)),
			Beliefs: make(map[string]Value, len(s.Beliefs)),
			Weight:  1.0 / float64(p.Samples),
		}
		for k, v := range s.Traits {
			cf.Traits[k] = v
		}
		for _, a := range axes {
			jitter := rng.Float64()*(2*p.Noise) - p.Noise
			cf.Traits[a] = clamp(-cf.Traits[a] + jitter)
		}
		for k, v := range s.Beliefs {
			cf.Beliefs[k] = v
		}
		for _, a := range absents {
			cf.Beliefs[a] = Bool(true)
		}
		s.Counterfactuals = append(s.Counterfactuals, cf)
	}
	s.Logf("[%s] generated %d counterfactual(s) on axes=%v", p.Name(), p.Samples, axes)
}

// topTraits ranks trait names by descending absolute value, breaking
// ties by name so axis selection is stable across runs.
func topTraits(traits map[string]float64, k int) []string {
	names := make([]string, 0, len(traits))
	for name := range traits {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := math.Abs(traits[names[i]]), math.Abs(traits[names[j]])
		if ai != aj {
			return ai > aj
		}
		return names[i] < names[j]
	})
	if len(names) > k {
		names = names[:k]
	}
	return names
}

// MuDelta is the self-modifying step. It installs the two
// transformation rules idempotently (the rule list never grows past
// the closed set) and then executes every installed rule in install
// order.
type MuDelta struct{}

func (MuDelta) Name() string { return "MuDelta" }

func (m MuDelta) Apply(s *State, rng *rand.Rand) {
	s.InstallRule(RuleReduceExtremes)
	s.InstallRule(RuleCounterfactualBlend)
	names := make([]string, 0, len(s.Rules))
	for _, r := range s.Rules {
		r.apply(s, rng)
		names = append(names, r.Name())
	}
	s.Logf("[%s] rules=%v executed", m.Name(), names)
}

// OmegaContour collapses accrued tension into a paradoxical-stability
// score: 1/(1+Σ|tension|), so stability sits in (0, 1] and equals 1
// exactly when no tension accrued. An empty tension map is seeded with
// a zero baseline first. The score is written to the stability belief
// only if one is not already present.
type OmegaContour struct{}

func (OmegaContour) Name() string { return "OmegaContour" }

func (o OmegaContour) Apply(s *State, _ *rand.Rand) {
	if len(s.Tensions) == 0 {
		s.Tensions[baselineTension] = 0.0
	}
	var sum float64
	for _, v := range s.Tensions {
		sum += math.Abs(v)
	}
	stability := 1.0 / (1.0 + sum)
	if _, ok := s.Beliefs[StabilityBelief]; !ok {
		s.Beliefs[StabilityBelief] = Number(stability)
	}
	s.Logf("[%s] stability=%.4f, tensions=%d", o.Name(), stability, len(s.Tensions))
}

// UnknownGlyph expands the ontology when progress stalls: if the state
// holds no counterfactuals, or the stability belief reads below 0.5,
// it appends modality::N (N = new ontology count) and mirrors it as a
// hypergraph node. The stability belief is coerced to a float, with
// absent or non-numeric values reading as 0.
type UnknownGlyph struct{}

func (UnknownGlyph) Name() string { return "UnknownGlyph" }

func (u UnknownGlyph) Apply(s *State, _ *rand.Rand) {
	stab := s.Beliefs[StabilityBelief].Float()
	if len(s.Counterfactuals) == 0 || stab < 0.5 {
		mod := "modality::" + strconv.Itoa(len(s.Ontologies)+1)
		s.Ontologies = append(s.Ontologies, mod)
		s.Hyper.AddNode(Presemantic{ID: mod, Payload: map[string]any{"kind": "modality"}})
		s.Logf("[%s] expanded ontology with %s", u.Name(), mod)
		return
	}
	s.Logf("[%s] no expansion required (stability=%.3f)", u.Name(), stab)
}
