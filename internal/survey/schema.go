package survey

import (
	"github.com/louisbranch/ontogenic.space/internal/platform/errors"
)

// JSONSchema returns the JSON Schema document for one of the wire
// models: "state", "survey", "hypergraph", or "all" for a bundle of
// every model keyed by name. Unknown models fail with
// SCHEMA_UNKNOWN_MODEL.
func JSONSchema(model string) (map[string]any, error) {
	switch model {
	case "state":
		return stateSchema(), nil
	case "survey":
		return surveySchema(), nil
	case "hypergraph":
		return hypergraphSchema(), nil
	case "all":
		return map[string]any{
			"State":       stateSchema(),
			"Survey":      surveySchema(),
			"SurveyItem":  itemSchema(),
			"Hypergraph":  hypergraphSchema(),
			"HyperEdge":   edgeSchema(),
			"Presemantic": nodeSchema(),
		}, nil
	default:
		return nil, errors.WithMetadata(errors.CodeSchemaUnknownModel,
			"unknown schema model", map[string]string{"Model": model})
	}
}

// SchemaModels lists the accepted JSONSchema model names.
func SchemaModels() []string {
	return []string{"state", "survey", "hypergraph", "all"}
}

func boundedNumberMap(description string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          description,
		"additionalProperties": map[string]any{"type": "number", "minimum": -1, "maximum": 1},
	}
}

func stringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

func stateSchema() map[string]any {
	return map[string]any{
		"title":       "State",
		"type":        "object",
		"description": "Serializable snapshot of a pipeline state; null belief values mark structured absence.",
		"properties": map[string]any{
			"beliefs": map[string]any{
				"type":                 "object",
				"description":          "Belief values; null marks structured absence.",
				"additionalProperties": true,
			},
			"traits":      boundedNumberMap("Trait values in [-1, 1]."),
			"dual_traits": boundedNumberMap("Mirrored anti-traits, derived each pass."),
			"counterfactuals": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"traits":  map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "number"}},
						"beliefs": map[string]any{"type": "object", "additionalProperties": true},
						"weight":  map[string]any{"type": "number"},
					},
				},
			},
			"memories": stringArray("Seed memories and install markers."),
			"rules":    stringArray("Installed rule names."),
			"tensions": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "number"},
			},
			"ontologies": stringArray("Expanded modality labels."),
			"hyper":      hypergraphSchema(),
			"history":    stringArray("Per-stage trace lines with pass markers."),
		},
	}
}

func surveySchema() map[string]any {
	return map[string]any{
		"title": "Survey",
		"type":  "object",
		"properties": map[string]any{
			"id":         map[string]any{"type": "string"},
			"scale_min":  map[string]any{"type": "integer"},
			"scale_max":  map[string]any{"type": "integer"},
			"scale_low":  map[string]any{"type": "string"},
			"scale_high": map[string]any{"type": "string"},
			"items":      map[string]any{"type": "array", "items": itemSchema()},
		},
		"required": []string{"id", "scale_min", "scale_max", "items"},
	}
}

func itemSchema() map[string]any {
	return map[string]any{
		"title": "SurveyItem",
		"type":  "object",
		"properties": map[string]any{
			"id":      map[string]any{"type": "string"},
			"prompt":  map[string]any{"type": "string"},
			"reverse": map[string]any{"type": "boolean"},
			"maps_to": map[string]any{"type": "string"},
			"weight":  map[string]any{"type": "number"},
		},
		"required": []string{"id", "prompt", "maps_to"},
	}
}

func hypergraphSchema() map[string]any {
	return map[string]any{
		"title": "Hypergraph",
		"type":  "object",
		"properties": map[string]any{
			"nodes": map[string]any{"type": "object", "additionalProperties": nodeSchema()},
			"edges": map[string]any{"type": "array", "items": edgeSchema()},
		},
	}
}

func edgeSchema() map[string]any {
	return map[string]any{
		"title": "HyperEdge",
		"type":  "object",
		"properties": map[string]any{
			"src":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"dst":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"meta": map[string]any{"type": "object", "additionalProperties": true},
		},
	}
}

func nodeSchema() map[string]any {
	return map[string]any{
		"title": "Presemantic",
		"type":  "object",
		"properties": map[string]any{
			"id":      map[string]any{"type": "string"},
			"payload": map[string]any{"type": []string{"object", "null"}},
		},
		"required": []string{"id"},
	}
}
