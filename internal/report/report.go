// Package report defines source positions, compilation errors, findings
// (errors and warnings) and the report structure used to present the result
// of compiling a Pure model document.
package report

import "fmt"

// Severity separates findings that fail a build from findings that only
// inform.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

var severityNames = [...]string{SeverityError: "error", SeverityWarning: "warning"}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText renders the severity by name in reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names MarshalText produces.
func (s *Severity) UnmarshalText(text []byte) error {
	for i, name := range severityNames {
		if name == string(text) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// Location identifies where a finding occurred: the input file, the path of
// the enclosing packageable element and the source span inside the model text.
type Location struct {
	File   string            `json:"file"`
	Path   string            `json:"path,omitempty"` // element path like "model::Person"
	Source SourceInformation `json:"source"`
}

// Finding represents a single compilation error or warning.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// NewFinding builds a finding of the given rule and severity.
func NewFinding(rule string, severity Severity, message string, loc Location) Finding {
	return Finding{Rule: rule, Severity: severity, Message: message, Location: loc}
}

// NewError builds a finding that fails the build.
func NewError(rule string, message string, loc Location) Finding {
	return NewFinding(rule, SeverityError, message, loc)
}

// NewWarning builds a finding the build survives. Strict runs still fail on
// it.
func NewWarning(rule string, message string, loc Location) Finding {
	return NewFinding(rule, SeverityWarning, message, loc)
}

// Summary counts the findings of a report and the elements the document
// declared.
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	ElementCount int `json:"element_count"`
}

// Report collects the outcome of compiling a single model file. Session
// correlates it with the log lines of the same build.
type Report struct {
	File        string    `json:"file"`
	Session     string    `json:"session,omitempty"`
	SchemaValid bool      `json:"schema_valid"`
	Errors      []Finding `json:"errors"`
	Warnings    []Finding `json:"warnings"`
	Summary     Summary   `json:"summary"`
}

// NewReport starts the report of one input file. The finding lists are
// non-nil so JSON output always carries both arrays.
func NewReport(file string) *Report {
	return &Report{File: file, Errors: []Finding{}, Warnings: []Finding{}}
}

// AddFinding files f under its severity and keeps the summary in step.
func (r *Report) AddFinding(f Finding) {
	if f.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, f)
		r.Summary.WarningCount = len(r.Warnings)
		return
	}
	r.Errors = append(r.Errors, f)
	r.Summary.ErrorCount = len(r.Errors)
}

// AddFindings adds every finding in fs.
func (r *Report) AddFindings(fs []Finding) {
	for _, f := range fs {
		r.AddFinding(f)
	}
}

// HasErrors reports whether the build failed.
func (r *Report) HasErrors() bool { return len(r.Errors) > 0 }

// HasWarnings reports whether the compiler raised any warning.
func (r *Report) HasWarnings() bool { return len(r.Warnings) > 0 }
