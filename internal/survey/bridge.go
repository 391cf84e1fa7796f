package survey

import "github.com/louisbranch/ontogenic.space/internal/glyph"

// NewGlyphState seeds a pipeline state from scored traits and their
// placement. The placement rides along as beliefs so downstream
// stages and consumers can see where the profile started, and the
// install event is recorded as the first memory.
func NewGlyphState(scores map[string]float64, placement Placement, surveyID string) *glyph.State {
	beliefs := map[string]glyph.Value{
		"survey_version": glyph.String(surveyID),
		"coords2d":       glyph.Opaque([]float64{placement.Coords2D[0], placement.Coords2D[1]}),
		"coords3d":       glyph.Opaque([]float64{placement.Coords3D[0], placement.Coords3D[1], placement.Coords3D[2]}),
		"notes":          glyph.String(placement.Notes),
	}
	return glyph.NewState(beliefs, scores, []string{"install::post_survey"})
}
