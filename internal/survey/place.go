package survey

import "fmt"

// Placement locates a scored profile on the PAD continuum: the raw
// 3D coordinates (valence, arousal, dominance) plus a derived 2D
// surface position with a human-readable explanation.
type Placement struct {
	Coords2D [2]float64 `json:"coords2d"`
	Coords3D [3]float64 `json:"coords3d"`
	Axes     [3]string  `json:"axes"`
	Notes    string     `json:"notes"`
}

// PlaceOnContinuum projects trait scores onto the continuum. The 2D
// map is a transparent linear blend: x weighs positive affect and
// sociability against withdrawal, y weighs activation against calm,
// both damped by neuroticism. Missing scores read as 0.
func PlaceOnContinuum(scores map[string]float64) Placement {
	v := scores["valence"]
	a := scores["arousal"]
	d := scores["dominance"]
	extr := scores["extraversion"]
	neur := scores["neuroticism"]

	x := 0.6*v + 0.4*extr - 0.3*neur
	y := 0.7*a + 0.2*d - 0.2*neur

	return Placement{
		Coords2D: [2]float64{x, y},
		Coords3D: [3]float64{v, a, d},
		Axes:     [3]string{"valence", "arousal", "dominance"},
		Notes: fmt.Sprintf(
			"PAD=(v=%.2f, a=%.2f, d=%.2f); 2D derived from valence/extraversion/neuroticism & arousal/dominance",
			v, a, d),
	}
}
