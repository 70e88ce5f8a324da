package report

import (
	"errors"
	"fmt"
	"testing"
)

func TestCompilationErrorMessage(t *testing.T) {
	src := SourceInformation{SourceID: "m.pure", StartLine: 1, StartColumn: 2, EndLine: 3, EndColumn: 4}
	err := Errorf(src, "Can't find type '%s'", "model::Firm")

	want := "COMPILATION error at [m.pure:1:2-3:4]: Can't find type 'model::Firm'"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if Message(err) != "Can't find type 'model::Firm'" {
		t.Errorf("Message() = %q", Message(err))
	}
	if !HasSourceInformation(err) {
		t.Error("error should carry source information")
	}
}

func TestCompilationErrorWithoutSource(t *testing.T) {
	err := Errorf(UnknownSourceInformation, "boom")
	if HasSourceInformation(err) {
		t.Error("unknown span should not count as source information")
	}
	if err.Error() != "COMPILATION error: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAsCompilationErrorThroughWrapping(t *testing.T) {
	inner := Errorf(SourceInformation{StartLine: 5, StartColumn: 1, EndLine: 5, EndColumn: 8}, "inner")
	outer := fmt.Errorf("pass failed: %w", inner)

	ce, ok := AsCompilationError(outer)
	if !ok {
		t.Fatal("expected a compilation error in the chain")
	}
	if ce.Source.StartLine != 5 {
		t.Errorf("StartLine = %d, want 5", ce.Source.StartLine)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, SourceInformation{StartLine: 1, EndLine: 1}, "Error in 'a::B': root cause")
	if !errors.Is(err, cause) {
		t.Error("Wrap should keep the cause in the chain")
	}
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("class mapping type '%s'", "flatData")
	if !IsUnsupported(err) {
		t.Error("IsUnsupported should detect UnsupportedError")
	}
	if HasSourceInformation(err) {
		t.Error("unsupported errors have no source information")
	}
	if IsUnsupported(Errorf(UnknownSourceInformation, "x")) {
		t.Error("compilation error is not unsupported")
	}
}

func TestCompilationErrorFinding(t *testing.T) {
	ce := &CompilationError{Message: "bad", Type: ErrorTypeSchema}
	f := ce.Finding("m.json", "a::B")
	if f.Rule != "SCHEMA" || f.Severity != SeverityError || f.Location.Path != "a::B" {
		t.Errorf("unexpected finding %+v", f)
	}
}
