package glyph

import (
	"math/rand"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/random"
)

// Default PsiInvert parameters, used when the caller does not supply
// its own stage list.
const (
	DefaultTopK    = 3
	DefaultSamples = 5
	DefaultNoise   = 0.25
)

// DefaultStages returns the canonical six-stage pipeline in its fixed
// order.
func DefaultStages() []Stage {
	return []Stage{
		DeltaEmpty{},
		LambdaNull{},
		PsiInvert{TopK: DefaultTopK, Samples: DefaultSamples, Noise: DefaultNoise},
		MuDelta{},
		OmegaContour{},
		UnknownGlyph{},
	}
}

// Machine drives a stage pipeline over a State. It owns the random
// generator the stochastic stages draw from; two machines built with
// the same seed and stages produce identical runs.
type Machine struct {
	stages []Stage
	rng    *rand.Rand
}

// Option customizes a Machine.
type Option func(*Machine)

// WithStages replaces the default pipeline. Order is preserved as
// given.
func WithStages(stages ...Stage) Option {
	return func(m *Machine) {
		m.stages = stages
	}
}

// WithRand sets the random generator the stochastic stages use.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) {
		m.rng = rng
	}
}

// WithSeed is shorthand for WithRand over a generator seeded with the
// given value.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// NewMachine builds a Machine with the default stages and a
// crypto-seeded generator, then applies the options.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{stages: DefaultStages()}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		seed, err := random.NewSeed()
		if err != nil {
			seed = time.Now().UnixNano()
		}
		m.rng = rand.New(rand.NewSource(seed))
	}
	return m
}

// Stages returns the pipeline in execution order.
func (m *Machine) Stages() []Stage {
	return m.stages
}

// Step applies one full pass: every stage once, in order.
func (m *Machine) Step(s *State) {
	for _, stage := range m.stages {
		stage.Apply(s, m.rng)
	}
}

// Run performs the given number of passes, logging a pass marker
// before each one, and returns the same state for chaining. Zero or
// negative passes leave the state untouched.
func (m *Machine) Run(s *State, passes int) *State {
	for i := 0; i < passes; i++ {
		s.Logf("--- pass %d ---", i+1)
		m.Step(s)
	}
	return s
}

// Schema describes the machine's state fields and pipeline in a
// machine-readable form, for clients that introspect the model before
// driving it.
type Schema struct {
	StateFields        map[string]string `json:"state_fields"`
	GlyphPipeline      []string          `json:"glyph_pipeline"`
	EvaluationProtocol string            `json:"evaluation_protocol"`
}

// Schema reports the shape of the state record and the configured
// pipeline order.
func (m *Machine) Schema() Schema {
	pipeline := make([]string, 0, len(m.stages))
	for _, stage := range m.stages {
		pipeline = append(pipeline, stage.Name())
	}
	return Schema{
		StateFields: map[string]string{
			"beliefs":         "map[string]Value (null marks structured absence)",
			"traits":          "map[string]float64 in [-1, 1]",
			"dual_traits":     "map[string]float64 (auto-derived)",
			"counterfactuals": "[]Counterfactual",
			"memories":        "[]string",
			"rules":           "[]Rule (self-modifying)",
			"tensions":        "map[string]float64",
			"ontologies":      "[]string",
			"hyper":           "Hypergraph (nodes+hyperedges)",
			"history":         "[]string",
		},
		GlyphPipeline:      pipeline,
		EvaluationProtocol: "Self-modifying, contradiction-metabolizing; order-sensitive but extensible.",
	}
}
