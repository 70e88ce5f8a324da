package ast

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDocument_ValidFile(t *testing.T) {
	examplePath := filepath.Join("..", "..", "testdata", "firm.json")

	doc, err := LoadDocument(examplePath)
	if err != nil {
		t.Fatalf("LoadDocument returned error: %v", err)
	}
	if doc == nil {
		t.Fatal("LoadDocument returned nil document")
	}

	if doc.Type != "data" {
		t.Errorf("expected _type 'data', got %q", doc.Type)
	}
	if len(doc.Sections) != 1 {
		t.Errorf("expected 1 section index, got %d", len(doc.Sections))
	}
	if len(doc.Profiles) != 1 {
		t.Errorf("expected 1 profile, got %d", len(doc.Profiles))
	}

	classNames := make(map[string]bool)
	for _, c := range doc.Classes {
		classNames[c.Path()] = true
	}
	for _, name := range []string{"model::LegalEntity", "model::Firm", "model::Person", "model::source::_Person"} {
		if !classNames[name] {
			t.Errorf("expected class %q not found", name)
		}
	}

	if len(doc.Enumerations) != 1 || doc.Enumerations[0].Path() != "model::FirmType" {
		t.Errorf("unexpected enumerations: %+v", doc.Enumerations)
	}
	if len(doc.Associations) != 1 {
		t.Errorf("expected 1 association, got %d", len(doc.Associations))
	}
	if len(doc.Functions) != 1 {
		t.Errorf("expected 1 function, got %d", len(doc.Functions))
	}
	if len(doc.Mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(doc.Mappings))
	}
	if len(doc.Runtimes) != 1 {
		t.Errorf("expected 1 runtime, got %d", len(doc.Runtimes))
	}
	if got := doc.ElementCount(); got != 11 {
		t.Errorf("ElementCount() = %d, want 11", got)
	}
}

func TestLoadDocument_DecodesNestedStructures(t *testing.T) {
	doc, err := LoadDocument(filepath.Join("..", "..", "testdata", "firm.json"))
	if err != nil {
		t.Fatalf("LoadDocument returned error: %v", err)
	}

	var firm *Class
	for i := range doc.Classes {
		if doc.Classes[i].Name == "Firm" {
			firm = &doc.Classes[i]
		}
	}
	if firm == nil {
		t.Fatal("class Firm not found")
	}
	if len(firm.SuperTypes) != 1 || firm.SuperTypes[0].Path != "LegalEntity" {
		t.Fatalf("unexpected supertypes: %+v", firm.SuperTypes)
	}
	if firm.SuperTypes[0].SourceInformation.StartColumn != 26 {
		t.Errorf("supertype span not decoded: %+v", firm.SuperTypes[0].SourceInformation)
	}
	if got := firm.Properties[0].TypePath(); got != "FirmType" {
		t.Errorf("genericType property TypePath() = %q, want FirmType", got)
	}
	if len(firm.QualifiedProperties) != 1 || firm.QualifiedProperties[0].Body[0].Function != "size" {
		t.Errorf("qualified property body not decoded: %+v", firm.QualifiedProperties)
	}

	m := doc.Mappings[0]
	if len(m.ClassMappings) != 2 {
		t.Fatalf("expected 2 class mappings, got %d", len(m.ClassMappings))
	}
	cm := m.ClassMappings[0]
	if cm.Type != ClassMappingPureInstance || cm.SrcClass != "model::source::_Person" {
		t.Errorf("unexpected class mapping: %+v", cm)
	}
	if len(cm.Raw) == 0 {
		t.Error("class mapping should keep its raw JSON")
	}
	if len(m.EnumerationMappings[0].EnumValueMappings[0].SourceValues) != 1 {
		t.Error("enum source values not decoded")
	}

	fn := doc.Functions[0]
	coll := fn.Body[0].Parameters[0]
	if coll.Type != VSCollection || len(coll.Values) != 2 {
		t.Errorf("collection values not decoded: %+v", coll)
	}
	if len(fn.Tests) != 1 || fn.Tests[0].ID != "simple" {
		t.Errorf("function tests not decoded: %+v", fn.Tests)
	}
}

func TestLoadDocument_NonexistentFile(t *testing.T) {
	_, err := LoadDocument("/nonexistent/path/model.json")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read model file") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoadDocument_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(tmpFile, []byte("{not valid json"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	_, err := LoadDocument(tmpFile)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse model JSON") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseDocument_UnknownElementKeptAsExtension(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"_type":"data","elements":[
		{"_type":"relational","package":"store","name":"DB","schemas":[]}
	]}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(doc.Extensions) != 1 {
		t.Fatalf("expected 1 extension element, got %d", len(doc.Extensions))
	}
	ext := doc.Extensions[0]
	if ext.Type != "relational" || ext.Path() != "store::DB" {
		t.Errorf("unexpected extension element: %+v", ext)
	}
	if !strings.Contains(string(ext.Raw), "schemas") {
		t.Error("extension element should keep its raw JSON")
	}
}

func TestParseDocument_MissingElementType(t *testing.T) {
	_, err := ParseDocument([]byte(`{"_type":"data","elements":[{"name":"X"}]}`))
	if err == nil {
		t.Fatal("expected error for element without _type")
	}
	if !strings.Contains(err.Error(), "elements[0]") {
		t.Errorf("error should point at the element index: %v", err)
	}
}

func TestElementPointer_StringAndObject(t *testing.T) {
	var ptrs []ElementPointer
	in := `["a::B", {"path":"a::C","sourceInformation":{"startLine":2,"startColumn":3,"endLine":2,"endColumn":6}}]`
	if err := json.Unmarshal([]byte(in), &ptrs); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if ptrs[0].Path != "a::B" || !ptrs[0].SourceInformation.IsUnknown() {
		t.Errorf("string pointer decoded as %+v", ptrs[0])
	}
	if ptrs[1].Path != "a::C" || ptrs[1].SourceInformation.StartLine != 2 {
		t.Errorf("object pointer decoded as %+v", ptrs[1])
	}
}

func TestProfileValue_LegacyStrings(t *testing.T) {
	var p Profile
	in := `{"_type":"profile","package":"a","name":"P","stereotypes":["s1",{"value":"s2","sourceInformation":{"startLine":4,"startColumn":1,"endLine":4,"endColumn":2}}],"tags":["t1"]}`
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(p.Stereotypes) != 2 || p.Stereotypes[0].Value != "s1" || p.Stereotypes[1].Value != "s2" {
		t.Errorf("unexpected stereotypes: %+v", p.Stereotypes)
	}
	if p.Stereotypes[1].SourceInformation.StartLine != 4 {
		t.Errorf("stereotype span not decoded: %+v", p.Stereotypes[1])
	}
	if len(p.Tags) != 1 || p.Tags[0].Value != "t1" {
		t.Errorf("unexpected tags: %+v", p.Tags)
	}
}

func TestValueSpecification_ClassInstanceGraphFetchUnwrapped(t *testing.T) {
	var v ValueSpecification
	in := `{"_type":"classInstance","type":"rootGraphFetchTree","value":{"class":"a::A","subTrees":[{"_type":"propertyGraphFetchTree","property":"name"}]}}`
	if err := json.Unmarshal([]byte(in), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if v.Type != VSRootGraphFetchTree || v.Class != "a::A" {
		t.Errorf("expected unwrapped root tree, got %+v", v)
	}
	if len(v.SubTrees) != 1 || v.SubTrees[0].Property != "name" {
		t.Errorf("subtrees not decoded: %+v", v.SubTrees)
	}
}

func TestValueSpecification_LegacyLiteralValues(t *testing.T) {
	var v ValueSpecification
	in := `{"_type":"string","multiplicity":{"lowerBound":2,"upperBound":2},"values":["a","b"]}`
	if err := json.Unmarshal([]byte(in), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(v.LiteralValues) != 2 || len(v.Values) != 0 {
		t.Errorf("legacy literal values decoded as %+v / %+v", v.LiteralValues, v.Values)
	}
}

func TestMultiplicity_UnboundedUpper(t *testing.T) {
	var m Multiplicity
	if err := json.Unmarshal([]byte(`{"lowerBound":0}`), &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if m.UpperBound != nil {
		t.Errorf("missing upperBound should decode as unbounded, got %d", *m.UpperBound)
	}
}
