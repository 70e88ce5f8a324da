package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newValidator(t *testing.T) *SchemaValidator {
	t.Helper()
	v, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator failed: %v", err)
	}
	return v
}

func TestValidate_ReferenceExample(t *testing.T) {
	v := newValidator(t)

	examplePath := filepath.Join("..", "..", "testdata", "firm.json")
	errors := v.Validate(examplePath)
	if len(errors) > 0 {
		t.Errorf("expected 0 errors for reference example, got %d:", len(errors))
		for _, e := range errors {
			t.Errorf("  %s", e)
		}
	}
}

func TestValidate_MissingElements(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
	}
	errors := v.ValidateDocument(doc)
	if len(errors) == 0 {
		t.Fatal("expected errors for missing elements")
	}

	found := false
	for _, e := range errors {
		if strings.Contains(e.Message, "elements") || strings.Contains(e.Path, "elements") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected error mentioning 'elements', got: %v", errors)
	}
}

func TestValidate_ElementWithoutType(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
		"elements": []any{
			map[string]any{"package": "a", "name": "B"},
		},
	}
	errors := v.ValidateDocument(doc)
	if len(errors) == 0 {
		t.Fatal("expected errors for element without _type")
	}
}

func TestValidate_PropertyWithoutType(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
		"elements": []any{
			map[string]any{
				"_type":   "class",
				"package": "a",
				"name":    "B",
				"properties": []any{
					map[string]any{
						"name":         "x",
						"multiplicity": map[string]any{"lowerBound": 1, "upperBound": 1},
						// missing "type" and "genericType"
					},
				},
			},
		},
	}
	errors := v.ValidateDocument(doc)
	if len(errors) == 0 {
		t.Fatal("expected errors for property missing its type")
	}
}

func TestValidate_NegativeMultiplicity(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
		"elements": []any{
			map[string]any{
				"_type":   "class",
				"package": "a",
				"name":    "B",
				"properties": []any{
					map[string]any{
						"name":         "x",
						"type":         "String",
						"multiplicity": map[string]any{"lowerBound": -1},
					},
				},
			},
		},
	}
	if errors := v.ValidateDocument(doc); len(errors) == 0 {
		t.Fatal("expected errors for negative lower bound")
	}
}

func TestValidate_InvalidOperationKind(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
		"elements": []any{
			map[string]any{
				"_type":   "mapping",
				"package": "a",
				"name":    "M",
				"classMappings": []any{
					map[string]any{
						"_type":     "operation",
						"class":     "a::B",
						"operation": "INTERSECT",
					},
				},
			},
		},
	}
	if errors := v.ValidateDocument(doc); len(errors) == 0 {
		t.Fatal("expected errors for unknown operation kind")
	}
}

func TestValidate_RuntimeConnectionWithoutID(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
		"elements": []any{
			map[string]any{
				"_type":   "runtime",
				"package": "a",
				"name":    "R",
				"runtimeValue": map[string]any{
					"mappings": []any{"a::M"},
					"connections": []any{
						map[string]any{
							"store": "ModelStore",
							"storeConnections": []any{
								map[string]any{
									"connection": map[string]any{"_type": "connectionPointer", "connection": "a::C"},
								},
							},
						},
					},
				},
			},
		},
	}
	if errors := v.ValidateDocument(doc); len(errors) == 0 {
		t.Fatal("expected errors for store connection without id")
	}
}

func TestValidate_ValidMinimalDocument(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type":    "data",
		"elements": []any{},
	}
	errors := v.ValidateDocument(doc)
	if len(errors) > 0 {
		t.Errorf("expected 0 errors for minimal valid document, got %d:", len(errors))
		for _, e := range errors {
			t.Errorf("  %s", e)
		}
	}
}

func TestValidate_UnknownElementTypeIsAccepted(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type": "data",
		"elements": []any{
			map[string]any{"_type": "relational", "package": "store", "name": "DB", "schemas": []any{}},
		},
	}
	if errors := v.ValidateDocument(doc); len(errors) > 0 {
		t.Errorf("extension elements should pass schema validation, got %v", errors)
	}
}

func TestValidate_NonexistentFile(t *testing.T) {
	v := newValidator(t)
	errors := v.Validate("/nonexistent/file.json")
	if len(errors) == 0 {
		t.Fatal("expected errors for nonexistent file")
	}
	if !errors[0].ParseError {
		t.Error("read failures should be flagged as parse errors")
	}
}

func TestValidate_InvalidJSON(t *testing.T) {
	v := newValidator(t)
	tmpFile := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(tmpFile, []byte("{bad json}"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	errors := v.Validate(tmpFile)
	if len(errors) == 0 {
		t.Fatal("expected errors for invalid JSON")
	}
}

func TestValidate_AdditionalProperties(t *testing.T) {
	v := newValidator(t)

	doc := map[string]any{
		"_type":            "data",
		"elements":         []any{},
		"unknown_property": "should be rejected",
	}
	errors := v.ValidateDocument(doc)
	if len(errors) == 0 {
		t.Fatal("expected errors for additional properties")
	}
}

func TestSchemaError_JSON(t *testing.T) {
	se := SchemaError{Path: "/elements/0/name", Message: "missing property"}
	data, err := json.Marshal(se)
	if err != nil {
		t.Fatalf("failed to marshal SchemaError: %v", err)
	}

	var decoded SchemaError
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal SchemaError: %v", err)
	}
	if decoded.Path != se.Path || decoded.Message != se.Message {
		t.Errorf("round-trip failed: got %+v, want %+v", decoded, se)
	}
}
