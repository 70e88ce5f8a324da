package report

import (
	"encoding/json"
	"testing"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityError, "error"},
		{SeverityWarning, "warning"},
		{Severity(99), "severity(99)"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestSeverityMarshalText(t *testing.T) {
	type wrapper struct {
		Sev Severity `json:"sev"`
	}
	w := wrapper{Sev: SeverityWarning}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"sev":"warning"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestNewFinding(t *testing.T) {
	loc := Location{
		File:   "model.json",
		Path:   "model::Person",
		Source: SourceInformation{SourceID: "model.pure", StartLine: 10, StartColumn: 1, EndLine: 12, EndColumn: 1},
	}
	f := NewFinding("COMPILATION", SeverityError, "Can't find type 'model::Firm'", loc)

	if f.Rule != "COMPILATION" {
		t.Errorf("Rule = %q, want COMPILATION", f.Rule)
	}
	if f.Severity != SeverityError {
		t.Errorf("Severity = %v, want SeverityError", f.Severity)
	}
	if f.Message != "Can't find type 'model::Firm'" {
		t.Errorf("Message = %q", f.Message)
	}
	if f.Location != loc {
		t.Errorf("Location = %+v, want %+v", f.Location, loc)
	}
}

func TestNewErrorAndNewWarning(t *testing.T) {
	loc := Location{File: "f.json", Path: "model::M"}
	e := NewError("MAPPING", "duplicated class mapping", loc)
	if e.Severity != SeverityError {
		t.Errorf("NewError severity = %v, want SeverityError", e.Severity)
	}

	w := NewWarning("FUNCTION-MATCH", "signature mismatch", loc)
	if w.Severity != SeverityWarning {
		t.Errorf("NewWarning severity = %v, want SeverityWarning", w.Severity)
	}
}

func TestReportAddFinding(t *testing.T) {
	r := NewReport("model.json")

	if r.HasErrors() {
		t.Error("new report should not have errors")
	}
	if r.HasWarnings() {
		t.Error("new report should not have warnings")
	}

	loc := Location{File: "model.json"}
	r.AddFinding(NewError("COMPILATION", "bad ref", loc))
	r.AddFinding(NewError("MAPPING", "bad target", loc))
	r.AddFinding(NewWarning("FUNCTION-MATCH", "mismatch", loc))

	if r.Summary.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", r.Summary.ErrorCount)
	}
	if r.Summary.WarningCount != 1 {
		t.Errorf("WarningCount = %d, want 1", r.Summary.WarningCount)
	}
	if !r.HasErrors() {
		t.Error("report should have errors")
	}
	if !r.HasWarnings() {
		t.Error("report should have warnings")
	}
	if len(r.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(r.Errors))
	}
	if len(r.Warnings) != 1 {
		t.Errorf("len(Warnings) = %d, want 1", len(r.Warnings))
	}
}

func TestNewReportEmptySlices(t *testing.T) {
	r := NewReport("x.json")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	// Errors and Warnings should be [] not null in JSON
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	for _, key := range []string{"errors", "warnings"} {
		v, ok := m[key]
		if !ok {
			t.Errorf("missing key %q in JSON", key)
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			t.Errorf("key %q is not an array", key)
			continue
		}
		if len(arr) != 0 {
			t.Errorf("key %q has %d items, want 0", key, len(arr))
		}
	}
}

func TestSourceInformationOmitsUnknownFields(t *testing.T) {
	data, err := json.Marshal(UnknownSourceInformation)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("unknown source information = %s, want {}", data)
	}
}

func TestSourceInformationDecodesProtocolKeys(t *testing.T) {
	var s SourceInformation
	in := `{"sourceId":"m.pure","startLine":3,"startColumn":5,"endLine":7,"endColumn":2}`
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	want := SourceInformation{SourceID: "m.pure", StartLine: 3, StartColumn: 5, EndLine: 7, EndColumn: 2}
	if s != want {
		t.Errorf("got %+v, want %+v", s, want)
	}
}

func TestSourceInformationString(t *testing.T) {
	tests := []struct {
		src  SourceInformation
		want string
	}{
		{SourceInformation{}, "[unknown]"},
		{SourceInformation{StartLine: 2, StartColumn: 3, EndLine: 4, EndColumn: 5}, "[2:3-4:5]"},
		{SourceInformation{SourceID: "a.pure", StartLine: 2, StartColumn: 3, EndLine: 2, EndColumn: 9}, "[a.pure:2:3-9]"},
		{SourceInformation{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1}, "[1:1]"},
	}
	for _, tt := range tests {
		if got := tt.src.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestReportAddFindings(t *testing.T) {
	r := NewReport("model.json")
	r.AddFindings([]Finding{
		NewWarning("function-matching", "mismatch", Location{Path: "model::f"}),
		NewWarning("mapping-target", "unknown id", Location{Path: "model::M"}),
	})
	if r.HasErrors() {
		t.Error("warnings must not count as errors")
	}
	if r.Summary.WarningCount != 2 {
		t.Errorf("WarningCount = %d, want 2", r.Summary.WarningCount)
	}
}

func TestSeverityUnmarshalTextUnknown(t *testing.T) {
	var s Severity
	if err := s.UnmarshalText([]byte("fatal")); err == nil {
		t.Error("expected an error for an unknown severity")
	}
}
