package report

import (
	"strings"
	"testing"
)

func TestFormatTextEmpty(t *testing.T) {
	r := NewReport("clean.json")
	r.SchemaValid = true
	out := FormatText(r)

	if !strings.Contains(out, "File: clean.json") {
		t.Error("output should contain file name")
	}
	if !strings.Contains(out, "0 errors, 0 warnings") {
		t.Errorf("expected zero summary, got:\n%s", out)
	}
}

func TestFormatTextWithFindings(t *testing.T) {
	r := NewReport("bad.json")
	r.SchemaValid = false
	r.AddFinding(NewError("COMPILATION", "Can't find type 'model::Firm'", Location{
		File:   "bad.json",
		Path:   "model::Person",
		Source: SourceInformation{StartLine: 42, StartColumn: 3, EndLine: 42, EndColumn: 20},
	}))
	r.AddFinding(NewWarning("FUNCTION-MATCH", "signature mismatch", Location{
		File: "bad.json",
		Path: "model::f",
	}))

	out := FormatText(r)

	errIdx := strings.Index(out, "[COMPILATION]")
	warnIdx := strings.Index(out, "[FUNCTION-MATCH]")
	if errIdx < 0 || warnIdx < 0 {
		t.Fatalf("missing categories in output:\n%s", out)
	}
	if errIdx > warnIdx {
		t.Error("errors should appear before warnings")
	}

	if !strings.Contains(out, "[COMPILATION] error: Can't find type 'model::Firm' at model::Person [42:3-20]") {
		t.Errorf("error finding not formatted correctly:\n%s", out)
	}
	if !strings.Contains(out, "[FUNCTION-MATCH] warning: signature mismatch at model::f\n") {
		t.Errorf("warning finding not formatted correctly:\n%s", out)
	}
	if !strings.Contains(out, "1 errors, 1 warnings") {
		t.Errorf("summary wrong:\n%s", out)
	}
}

func TestFormatTextNoLocation(t *testing.T) {
	r := NewReport("test.json")
	r.AddFinding(NewError("INPUT", "unreadable", Location{File: "test.json"}))

	out := FormatText(r)
	if strings.Contains(out, " at ") {
		t.Errorf("should not print a location when none is known:\n%s", out)
	}
}
