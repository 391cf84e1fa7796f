package generator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/louisbranch/ontogenic.space/internal/survey"
)

// Persona is a response archetype: target levels in [-1, 1] keyed by
// the axis each survey item maps to. Missing axes default to 0.
type Persona struct {
	Name    string
	Targets map[string]float64
}

// personas is the archetype bank, ordered so index rotation is stable.
// The neutral profile stays first; it is the fixed choice when persona
// variation is disabled.
var personas = []Persona{
	{
		Name:    "baseline_neutral",
		Targets: map[string]float64{},
	},
	{
		Name: "steady_optimist",
		Targets: map[string]float64{
			"valence":       0.7,
			"arousal":       0.1,
			"dominance":     0.3,
			"curiosity":     0.4,
			"orderliness":   0.3,
			"extraversion":  0.5,
			"agreeableness": 0.6,
			"neuroticism":   -0.5,
			"detachment":    -0.4,
			"disinhibition": -0.2,
			"antagonism":    -0.5,
			"aggression":    -0.6,
		},
	},
	{
		Name: "anxious_achiever",
		Targets: map[string]float64{
			"valence":       -0.2,
			"arousal":       0.6,
			"dominance":     -0.1,
			"curiosity":     0.3,
			"orderliness":   0.8,
			"extraversion":  0.0,
			"agreeableness": 0.2,
			"neuroticism":   0.7,
			"detachment":    -0.1,
			"disinhibition": -0.4,
			"antagonism":    -0.2,
			"aggression":    -0.1,
		},
	},
	{
		Name: "detached_analyst",
		Targets: map[string]float64{
			"valence":       -0.1,
			"arousal":       -0.5,
			"dominance":     0.2,
			"curiosity":     0.7,
			"orderliness":   0.5,
			"extraversion":  -0.6,
			"agreeableness": -0.1,
			"neuroticism":   -0.2,
			"detachment":    0.7,
			"disinhibition": -0.5,
			"antagonism":    0.1,
			"aggression":    -0.3,
		},
	},
	{
		Name: "volatile_firebrand",
		Targets: map[string]float64{
			"valence":       0.1,
			"arousal":       0.8,
			"dominance":     0.6,
			"curiosity":     0.2,
			"orderliness":   -0.4,
			"extraversion":  0.6,
			"agreeableness": -0.5,
			"neuroticism":   0.5,
			"detachment":    -0.3,
			"disinhibition": 0.6,
			"antagonism":    0.6,
			"aggression":    0.7,
		},
	},
	{
		Name: "grounded_mediator",
		Targets: map[string]float64{
			"valence":       0.4,
			"arousal":       -0.2,
			"dominance":     0.0,
			"curiosity":     0.3,
			"orderliness":   0.4,
			"extraversion":  0.1,
			"agreeableness": 0.8,
			"neuroticism":   -0.3,
			"detachment":    -0.2,
			"disinhibition": -0.3,
			"antagonism":    -0.7,
			"aggression":    -0.5,
		},
	},
}

// Personas returns the archetype bank in stable order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// PersonaByName looks up an archetype by name.
func PersonaByName(name string) (Persona, bool) {
	for _, persona := range personas {
		if persona.Name == name {
			return persona, true
		}
	}
	return Persona{}, false
}

// Responses materializes a Likert answer sheet for the survey: each
// response expresses the persona's target for the axis its item maps
// to, with optional gaussian jitter applied before discretization.
func (p Persona) Responses(instrument survey.Survey, rng *rand.Rand, jitter float64) map[string]int {
	responses := make(map[string]int, len(instrument.Items))
	for _, item := range instrument.Items {
		target := p.Targets[item.MapsTo]
		if jitter > 0 && rng != nil {
			target += rng.NormFloat64() * jitter
		}
		target = math.Max(-1, math.Min(1, target))
		responses[item.ID] = likertFor(target, item.Reverse, instrument.ScaleMin, instrument.ScaleMax)
	}
	return responses
}

// likertFor inverts the scoring normalization so the returned response
// scores back to the target level. Reverse items negate first.
func likertFor(target float64, reverse bool, lo, hi int) int {
	if reverse {
		target = -target
	}
	mid := float64(lo+hi) / 2
	half := float64(hi-lo) / 2
	response := int(math.Round(mid + target*half))
	if response < lo {
		response = lo
	}
	if response > hi {
		response = hi
	}
	return response
}

// userHandles is the synthetic user pool; overflow indexes get a
// numeric suffix so large presets keep distinct users.
var userHandles = []string{
	"ada", "bashir", "chioma", "dmitri", "esperanza", "farid",
	"gudrun", "hiroshi", "ingrid", "jamal", "kalinda", "lucio",
}

// userHandle returns a stable synthetic user id for an index.
func userHandle(index int) string {
	handle := userHandles[index%len(userHandles)]
	if index >= len(userHandles) {
		return fmt.Sprintf("%s_%d", handle, index/len(userHandles)+1)
	}
	return handle
}

// noteTemplates annotate seeded runs; %s is the persona name.
var noteTemplates = []string{
	"baseline sitting (%s)",
	"follow-up sitting (%s)",
	"quarterly check-in (%s)",
	"post-intervention retest (%s)",
}
