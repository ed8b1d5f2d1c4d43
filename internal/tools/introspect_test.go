package tools

import (
	"encoding/json"
	"testing"
)

type sampleArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func TestSchemaOfReflectsFields(t *testing.T) {
	raw, err := SchemaOf(sampleArgs{})
	if err != nil {
		t.Fatalf("SchemaOf() error = %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("SchemaOf() produced invalid JSON: %v", err)
	}

	props, ok := doc["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("SchemaOf() result has no properties object")
	}
	if _, ok := props["query"]; !ok {
		t.Error("SchemaOf() properties missing \"query\"")
	}
	if _, ok := props["limit"]; !ok {
		t.Error("SchemaOf() properties missing \"limit\"")
	}
}

func TestSchemaOfDisallowsAdditionalProperties(t *testing.T) {
	raw, err := SchemaOf(sampleArgs{})
	if err != nil {
		t.Fatalf("SchemaOf() error = %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("SchemaOf() produced invalid JSON: %v", err)
	}
	additional, ok := doc["additionalProperties"].(bool)
	if !ok || additional {
		t.Errorf("SchemaOf() additionalProperties = %v, want false", doc["additionalProperties"])
	}
}
