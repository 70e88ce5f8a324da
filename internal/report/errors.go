package report

import (
	"errors"
	"fmt"
)

// SourceInformation is a span in the model source text. The zero value means
// the position is unknown.
type SourceInformation struct {
	SourceID    string `json:"sourceId,omitempty"`
	StartLine   int    `json:"startLine,omitempty"`
	StartColumn int    `json:"startColumn,omitempty"`
	EndLine     int    `json:"endLine,omitempty"`
	EndColumn   int    `json:"endColumn,omitempty"`
}

// UnknownSourceInformation is used when a caller has no position context.
var UnknownSourceInformation = SourceInformation{}

// IsUnknown reports whether the span carries no position.
func (s SourceInformation) IsUnknown() bool {
	return s.StartLine <= 0
}

// String renders the span as "[id:line:col-line:col]", collapsing the end
// line when the span sits on one line.
func (s SourceInformation) String() string {
	if s.IsUnknown() {
		return "[unknown]"
	}
	prefix := ""
	if s.SourceID != "" {
		prefix = s.SourceID + ":"
	}
	if s.StartLine == s.EndLine {
		if s.StartColumn == s.EndColumn {
			return fmt.Sprintf("[%s%d:%d]", prefix, s.StartLine, s.StartColumn)
		}
		return fmt.Sprintf("[%s%d:%d-%d]", prefix, s.StartLine, s.StartColumn, s.EndColumn)
	}
	return fmt.Sprintf("[%s%d:%d-%d:%d]", prefix, s.StartLine, s.StartColumn, s.EndLine, s.EndColumn)
}

// ErrorType is the coarse phase an error belongs to.
type ErrorType int

const (
	ErrorTypeCompilation ErrorType = iota
	ErrorTypeParser
	ErrorTypeSchema
	ErrorTypeInput
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeCompilation:
		return "COMPILATION"
	case ErrorTypeParser:
		return "PARSER"
	case ErrorTypeSchema:
		return "SCHEMA"
	case ErrorTypeInput:
		return "INPUT"
	default:
		return fmt.Sprintf("errortype(%d)", int(t))
	}
}

// CompilationError is the single structured failure surfaced by the compiler.
type CompilationError struct {
	Message string
	Source  SourceInformation
	Type    ErrorType
	Err     error
}

func (e *CompilationError) Error() string {
	if e.Source.IsUnknown() {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error at %s: %s", e.Type, e.Source, e.Message)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Finding converts the error into an error-severity finding for a report.
func (e *CompilationError) Finding(file, path string) Finding {
	return NewError(e.Type.String(), e.Message, Location{File: file, Path: path, Source: e.Source})
}

// Errorf builds a compilation error anchored at src.
func Errorf(src SourceInformation, format string, args ...any) error {
	return &CompilationError{Message: fmt.Sprintf(format, args...), Source: src, Type: ErrorTypeCompilation}
}

// Wrap anchors err at src with a new message, keeping err in the chain.
func Wrap(err error, src SourceInformation, message string) error {
	return &CompilationError{Message: message, Source: src, Type: ErrorTypeCompilation, Err: err}
}

// AsCompilationError returns the first CompilationError in err's chain.
func AsCompilationError(err error) (*CompilationError, bool) {
	var ce *CompilationError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasSourceInformation reports whether err carries a known source position.
func HasSourceInformation(err error) bool {
	ce, ok := AsCompilationError(err)
	return ok && !ce.Source.IsUnknown()
}

// Message returns the bare message of a compilation error, or err.Error()
// for any other error.
func Message(err error) string {
	if ce, ok := AsCompilationError(err); ok {
		return ce.Message
	}
	return err.Error()
}

// UnsupportedError reports a construct that neither the core nor any
// registered extension knows how to handle. It never carries a position.
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string { return "unsupported operation: " + e.Message }

// Unsupported builds an UnsupportedError.
func Unsupported(format string, args ...any) error {
	return &UnsupportedError{Message: fmt.Sprintf(format, args...)}
}

// IsUnsupported reports whether err (or any error in its chain) is an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}
