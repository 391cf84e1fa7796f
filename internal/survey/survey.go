// Package survey defines the trait survey instrument: the item bank,
// Likert scoring, continuum placement, and the bridge that seeds a
// pipeline state from scored traits. Prompts and scale labels are
// resolved through the i18n catalog so clients can render the survey
// in any supported locale.
package survey

import (
	i18ncatalog "github.com/louisbranch/ontogenic.space/internal/platform/i18n/catalog"
)

const (
	// DefaultSurveyID identifies the canonical 15-item instrument.
	DefaultSurveyID = "ontogenic_simple_v1"

	// ScaleMin and ScaleMax bound the Likert scale.
	ScaleMin = 1
	ScaleMax = 7
)

// Item is a single survey question. MapsTo names the trait or PAD
// axis the response feeds; Reverse flips the response before
// aggregation.
type Item struct {
	ID      string  `json:"id"`
	Prompt  string  `json:"prompt"`
	Reverse bool    `json:"reverse"`
	MapsTo  string  `json:"maps_to"`
	Weight  float64 `json:"weight"`
}

// Survey is a renderable instrument: scale bounds, localized labels,
// and the ordered item list.
type Survey struct {
	ID        string `json:"id"`
	ScaleMin  int    `json:"scale_min"`
	ScaleMax  int    `json:"scale_max"`
	ScaleLow  string `json:"scale_low"`
	ScaleHigh string `json:"scale_high"`
	Items     []Item `json:"items"`
}

// itemDefs is the canonical item bank: the PAD core block followed by
// the broad-trait block. Prompts live in the locale catalogs.
var itemDefs = []Item{
	{ID: "pad_valence_1", MapsTo: "valence", Weight: 1},
	{ID: "pad_valence_2", MapsTo: "valence", Reverse: true, Weight: 1},
	{ID: "pad_arousal_1", MapsTo: "arousal", Weight: 1},
	{ID: "pad_arousal_2", MapsTo: "arousal", Reverse: true, Weight: 1},
	{ID: "pad_dominance_1", MapsTo: "dominance", Weight: 1},
	{ID: "pad_dominance_2", MapsTo: "dominance", Reverse: true, Weight: 1},
	{ID: "o_curiosity", MapsTo: "curiosity", Weight: 1},
	{ID: "c_orderliness", MapsTo: "orderliness", Weight: 1},
	{ID: "e_extraversion", MapsTo: "extraversion", Weight: 1},
	{ID: "a_agreeableness", MapsTo: "agreeableness", Weight: 1},
	{ID: "n_neuroticism", MapsTo: "neuroticism", Weight: 1},
	{ID: "d_detachment", MapsTo: "detachment", Weight: 1},
	{ID: "dis_disinhibition", MapsTo: "disinhibition", Weight: 1},
	{ID: "ant_antagonism", MapsTo: "antagonism", Weight: 1},
	{ID: "ag_aggression", MapsTo: "aggression", Weight: 1},
}

// Build assembles the canonical survey with prompts and scale labels
// resolved for the given locale. Unknown locales fall back to the
// catalog's base locale.
func Build(locale string) Survey {
	bundle := i18ncatalog.Default()
	s := Survey{
		ID:        DefaultSurveyID,
		ScaleMin:  ScaleMin,
		ScaleMax:  ScaleMax,
		ScaleLow:  message(bundle, locale, "survey.scale.low"),
		ScaleHigh: message(bundle, locale, "survey.scale.high"),
		Items:     make([]Item, len(itemDefs)),
	}
	for i, def := range itemDefs {
		item := def
		item.Prompt = message(bundle, locale, "survey.item."+def.ID)
		s.Items[i] = item
	}
	return s
}

func message(bundle *i18ncatalog.Bundle, locale, key string) string {
	if msg, ok := bundle.Message(locale, key); ok {
		return msg
	}
	return key
}
