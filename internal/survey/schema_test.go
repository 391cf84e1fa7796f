package survey

import (
	"encoding/json"
	"testing"

	"github.com/louisbranch/ontogenic.space/internal/platform/errors"
)

func TestJSONSchemaKnownModels(t *testing.T) {
	tests := []struct {
		model string
		title string
	}{
		{model: "state", title: "State"},
		{model: "survey", title: "Survey"},
		{model: "hypergraph", title: "Hypergraph"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			schema, err := JSONSchema(tt.model)
			if err != nil {
				t.Fatalf("JSONSchema(%q) error = %v", tt.model, err)
			}
			if schema["title"] != tt.title {
				t.Errorf("title = %v, want %v", schema["title"], tt.title)
			}
			if schema["type"] != "object" {
				t.Errorf("type = %v, want object", schema["type"])
			}
			if _, err := json.Marshal(schema); err != nil {
				t.Errorf("schema does not serialize: %v", err)
			}
		})
	}
}

func TestJSONSchemaBundle(t *testing.T) {
	schema, err := JSONSchema("all")
	if err != nil {
		t.Fatalf("JSONSchema(all) error = %v", err)
	}

	for _, name := range []string{
		"State", "Survey", "SurveyItem", "Hypergraph", "HyperEdge", "Presemantic",
	} {
		if _, ok := schema[name]; !ok {
			t.Errorf("bundle missing %q", name)
		}
	}
}

func TestJSONSchemaUnknownModel(t *testing.T) {
	_, err := JSONSchema("belief")
	if err == nil {
		t.Fatal("JSONSchema(belief) error = nil, want unknown-model failure")
	}
	if code := errors.CodeOf(err); code != errors.CodeSchemaUnknownModel {
		t.Errorf("CodeOf() = %v, want %v", code, errors.CodeSchemaUnknownModel)
	}
}

func TestSchemaModels(t *testing.T) {
	models := SchemaModels()
	if len(models) != 4 {
		t.Fatalf("models = %v, want 4 entries", models)
	}
	for _, m := range models {
		if m == "all" {
			continue
		}
		if _, err := JSONSchema(m); err != nil {
			t.Errorf("JSONSchema(%q) error = %v", m, err)
		}
	}
}
