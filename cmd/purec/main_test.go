package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var firmExample = filepath.Join("..", "..", "testdata", "firm.json")

func fixture(name string) string {
	return filepath.Join("..", "..", "internal", "checker", "testdata", name)
}

func runCapture(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunValidFile(t *testing.T) {
	code, out, _ := runCapture("compile", firmExample)
	if code != 0 {
		t.Errorf("run(valid file) = %d, want 0", code)
	}
	if !strings.Contains(out, "0 errors, 0 warnings") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestRunValidFileSchemaOnly(t *testing.T) {
	code, _, _ := runCapture("compile", "--schema-only", firmExample)
	if code != 0 {
		t.Errorf("run(--schema-only valid) = %d, want 0", code)
	}
}

func TestRunNonexistentFile(t *testing.T) {
	code, _, _ := runCapture("compile", "/nonexistent/model.json")
	if code != 2 {
		t.Errorf("run(nonexistent) = %d, want 2", code)
	}
}

func TestRunInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"elements": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, _ := runCapture("compile", path)
	if code != 2 {
		t.Errorf("run(invalid JSON) = %d, want 2", code)
	}
}

func TestRunInvalidSchema(t *testing.T) {
	code, _, _ := runCapture("compile", fixture("invalid-schema.json"))
	if code != 1 {
		t.Errorf("run(invalid schema) = %d, want 1", code)
	}
}

func TestRunCompilationError(t *testing.T) {
	code, out, _ := runCapture("compile", "--log-level", "silent", fixture("cycle.json"))
	if code != 1 {
		t.Errorf("run(cycle) = %d, want 1", code)
	}
	if !strings.Contains(out, "Cycle detected in class supertype hierarchy") {
		t.Errorf("report does not name the cycle:\n%s", out)
	}
}

func TestRunStrict(t *testing.T) {
	if code, _, _ := runCapture("compile", fixture("warning.json")); code != 0 {
		t.Errorf("run(warnings) = %d, want 0", code)
	}
	if code, _, _ := runCapture("compile", "--strict", fixture("warning.json")); code != 1 {
		t.Errorf("run(--strict warnings) = %d, want 1", code)
	}
}

func TestRunRelationalExtension(t *testing.T) {
	code, out, _ := runCapture("compile", fixture("relational.json"))
	if code != 0 {
		t.Errorf("run(relational) = %d, want 0\n%s", code, out)
	}
}

func TestRunConfigDisablesExtension(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "purec.yaml")
	if err := os.WriteFile(cfg, []byte("compiler:\n  extensions: []\nlogging:\n  level: silent\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCapture("--config", cfg, "compile", fixture("relational.json"))
	if code != 1 {
		t.Errorf("run(relational without extension) = %d, want 1", code)
	}
	if !strings.Contains(out, "[UNSUPPORTED]") {
		t.Errorf("expected an UNSUPPORTED finding:\n%s", out)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "purec.yaml")
	if err := os.WriteFile(cfg, []byte("compiler:\n  strict: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCapture("--config", cfg, "compile", firmExample)
	if code != 2 {
		t.Errorf("run(unknown config key) = %d, want 2", code)
	}
	if !strings.Contains(errOut, "field strict not found") {
		t.Errorf("unexpected stderr: %s", errOut)
	}
}

func TestRunJSONFormat(t *testing.T) {
	code, out, _ := runCapture("compile", "--format", "json", firmExample)
	if code != 0 {
		t.Fatalf("run(--format json) = %d, want 0", code)
	}
	var r struct {
		File    string `json:"file"`
		Session string `json:"session"`
	}
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, out)
	}
	if r.File != firmExample || r.Session == "" {
		t.Errorf("unexpected report header: %+v", r)
	}
}

func TestRunGlob(t *testing.T) {
	pattern := filepath.Join("..", "..", "internal", "checker", "testdata", "**", "*.json")
	code, out, _ := runCapture("compile", "--log-level", "silent", pattern)
	if code != 1 {
		t.Errorf("run(glob) = %d, want 1", code)
	}
	if n := strings.Count(out, "File: "); n != 4 {
		t.Errorf("compiled %d files, want 4", n)
	}
}

func TestRunGlobNoMatch(t *testing.T) {
	code, _, errOut := runCapture("compile", filepath.Join(t.TempDir(), "**", "*.json"))
	if code != 2 {
		t.Errorf("run(empty glob) = %d, want 2", code)
	}
	if !strings.Contains(errOut, "no files match pattern") {
		t.Errorf("unexpected stderr: %s", errOut)
	}
}

func TestRunDump(t *testing.T) {
	code, out, _ := runCapture("compile", "--quiet", "--dump", "model::Person", firmExample)
	if code != 0 {
		t.Errorf("run(--dump) = %d, want 0", code)
	}
	if !strings.Contains(out, "graph.Class") || !strings.Contains(out, `"Person"`) {
		t.Errorf("unexpected dump:\n%s", out)
	}
}

func TestRunDumpUnknownElement(t *testing.T) {
	code, _, errOut := runCapture("compile", "--quiet", "--dump", "model::Nope", firmExample)
	if code != 2 {
		t.Errorf("run(--dump unknown) = %d, want 2", code)
	}
	if !strings.Contains(errOut, `element "model::Nope" not found`) {
		t.Errorf("unexpected stderr: %s", errOut)
	}
}

func TestRunMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purec.prom")
	if code, _, _ := runCapture("compile", "--quiet", "--metrics-file", path, firmExample); code != 0 {
		t.Fatalf("run(--metrics-file) = %d, want 0", code)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `purec_compiler_build_duration_seconds_count{result="success"} 1`) {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestRunNoArgs(t *testing.T) {
	if code, _, _ := runCapture("compile"); code != 2 {
		t.Errorf("run(no args) = %d, want 2", code)
	}
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runCapture("version")
	if code != 0 {
		t.Errorf("run(version) = %d, want 0", code)
	}
	if out != "purec "+version+"\n" {
		t.Errorf("version output = %q", out)
	}
	if code, _, _ := runCapture("--version"); code != 0 {
		t.Errorf("run(--version) = %d, want 0", code)
	}
}

func TestRunInvalidFormat(t *testing.T) {
	if code, _, _ := runCapture("compile", "--format", "xml", firmExample); code != 2 {
		t.Errorf("run(--format xml) = %d, want 2", code)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	if code, _, _ := runCapture("compile", "--rules", "1", firmExample); code != 2 {
		t.Errorf("run(--rules) = %d, want 2", code)
	}
}
