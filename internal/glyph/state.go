package glyph

import "fmt"

// Counterfactual is a hypothetical variant of the current state,
// produced by PsiInvert and consumed by the blend rule. Weight scales
// how strongly a blend pulls the live traits toward it.
type Counterfactual struct {
	Traits  map[string]float64 `json:"traits"`
	Beliefs map[string]Value   `json:"beliefs"`
	Weight  float64            `json:"weight"`
}

// State is the single mutable record every stage reads and writes.
// Fields are exported so stages, rules, and collaborators share one
// representation; none of them is safe for concurrent mutation.
//
// Traits hold values in [-1, 1]. A trait recorded as NaN counts as
// absent: DeltaEmpty logs it alongside absent beliefs.
type State struct {
	Beliefs         map[string]Value
	Traits          map[string]float64
	DualTraits      map[string]float64
	Memories        []string
	Counterfactuals []Counterfactual
	Rules           []Rule
	Tensions        map[string]float64
	Ontologies      []string
	Hyper           *Hypergraph
	History         []string
}

// NewState builds a State around the given beliefs, traits, and seed
// memories. Nil maps are accepted; every collection comes out non-nil
// so stages can mutate without guarding.
func NewState(beliefs map[string]Value, traits map[string]float64, memories []string) *State {
	s := &State{
		Beliefs:    make(map[string]Value, len(beliefs)),
		Traits:     make(map[string]float64, len(traits)),
		DualTraits: make(map[string]float64),
		Memories:   make([]string, 0, len(memories)),
		Tensions:   make(map[string]float64),
		Hyper:      NewHypergraph(),
	}
	for k, v := range beliefs {
		s.Beliefs[k] = v
	}
	for k, v := range traits {
		s.Traits[k] = v
	}
	s.Memories = append(s.Memories, memories...)
	return s
}

// Log appends one line to the state's history trace.
func (s *State) Log(line string) {
	s.History = append(s.History, line)
}

// Logf appends one formatted line to the state's history trace.
func (s *State) Logf(format string, args ...any) {
	s.Log(fmt.Sprintf(format, args...))
}

// InstallRule appends the rule unless one with the same identity is
// already installed. Install order is preserved; execution follows it.
func (s *State) InstallRule(r Rule) {
	for _, installed := range s.Rules {
		if installed == r {
			return
		}
	}
	s.Rules = append(s.Rules, r)
}

// Snapshot is the serializable projection of a State. Rules degrade to
// their names; the hypergraph flattens its edge sets.
type Snapshot struct {
	Beliefs         map[string]Value   `json:"beliefs"`
	Traits          map[string]float64 `json:"traits"`
	DualTraits      map[string]float64 `json:"dual_traits"`
	Memories        []string           `json:"memories"`
	Counterfactuals []Counterfactual   `json:"counterfactuals"`
	Rules           []string           `json:"rules"`
	Tensions        map[string]float64 `json:"tensions"`
	Ontologies      []string           `json:"ontologies"`
	Hyper           HypergraphSnapshot `json:"hyper"`
	History         []string           `json:"history"`
}

// Snapshot deep-copies the state into its serializable projection.
// Mutating the snapshot never touches the live state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Beliefs:         make(map[string]Value, len(s.Beliefs)),
		Traits:          make(map[string]float64, len(s.Traits)),
		DualTraits:      make(map[string]float64, len(s.DualTraits)),
		Memories:        append(make([]string, 0, len(s.Memories)), s.Memories...),
		Counterfactuals: make([]Counterfactual, 0, len(s.Counterfactuals)),
		Rules:           make([]string, 0, len(s.Rules)),
		Tensions:        make(map[string]float64, len(s.Tensions)),
		Ontologies:      append(make([]string, 0, len(s.Ontologies)), s.Ontologies...),
		Hyper:           s.Hyper.Snapshot(),
		History:         append(make([]string, 0, len(s.History)), s.History...),
	}
	for k, v := range s.Beliefs {
		snap.Beliefs[k] = v
	}
	for k, v := range s.Traits {
		snap.Traits[k] = v
	}
	for k, v := range s.DualTraits {
		snap.DualTraits[k] = v
	}
	for _, cf := range s.Counterfactuals {
		copied := Counterfactual{
			Traits:  make(map[string]float64, len(cf.Traits)),
			Beliefs: make(map[string]Value, len(cf.Beliefs)),
			Weight:  cf.Weight,
		}
		for k, v := range cf.Traits {
			copied.Traits[k] = v
		}
		for k, v := range cf.Beliefs {
			copied.Beliefs[k] = v
		}
		snap.Counterfactuals = append(snap.Counterfactuals, copied)
	}
	for _, r := range s.Rules {
		snap.Rules = append(snap.Rules, r.Name())
	}
	for k, v := range s.Tensions {
		snap.Tensions[k] = v
	}
	return snap
}
