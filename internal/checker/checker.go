// Package checker drives the compilation of Pure model files: schema
// validation, decoding, the graph build and the consolidated report.
package checker

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/metrics"
	"github.com/foundry-zero/purec/internal/report"
	"github.com/foundry-zero/purec/internal/schema"
)

// RuleUnsupported is the finding rule of a construct no extension handles.
// Other errors carry the name of their report.ErrorType.
const RuleUnsupported = "UNSUPPORTED"

// Build results used as the metrics label.
const (
	ResultSuccess     = "success"
	ResultError       = "error"
	ResultUnsupported = "unsupported"
)

// CheckOptions controls a single check.
type CheckOptions struct {
	SchemaOnly bool // Only run JSON Schema validation, skip the build.
	Strict     bool // Treat warnings as errors for exit-code purposes.

	// Compiler is passed to the build. Its Session and ObservePass are
	// set by the checker.
	Compiler compiler.Options
}

// Result is the outcome of checking one file. Model is nil unless the
// build succeeded.
type Result struct {
	Report *report.Report
	Model  *compiler.PureModel
}

// Failed reports whether the result should fail the run.
func (r *Result) Failed(strict bool) bool {
	return r.Report.HasErrors() || (strict && r.Report.HasWarnings())
}

// Checker orchestrates compilation of model files.
type Checker struct {
	sv      *schema.SchemaValidator
	log     *slog.Logger
	metrics *metrics.CompilerMetrics
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for the checker and every build.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// WithMetrics records build metrics into m.
func WithMetrics(m *metrics.CompilerMetrics) Option {
	return func(c *Checker) { c.metrics = m }
}

// NewChecker creates a Checker with the embedded JSON Schema validator.
func NewChecker(opts ...Option) (*Checker, error) {
	sv, err := schema.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("initialize schema validator: %w", err)
	}
	c := &Checker{sv: sv, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check compiles the model file at path and returns its report, plus the
// model when the build succeeds.
func (c *Checker) Check(path string, opts CheckOptions) *Result {
	data, err := os.ReadFile(path)
	if err != nil {
		r := report.NewReport(path)
		r.AddFinding(report.NewError(report.ErrorTypeInput.String(), fmt.Sprintf("cannot access file: %v", err),
			report.Location{File: path}))
		return &Result{Report: r}
	}
	return c.CheckBytes(path, data, opts)
}

// CheckBytes compiles the model document data. name labels the report.
func (c *Checker) CheckBytes(name string, data []byte, opts CheckOptions) *Result {
	r := report.NewReport(name)
	res := &Result{Report: r}

	// --- Phase 1: JSON Schema validation ---
	schemaErrors := c.sv.ValidateBytes(data)
	r.SchemaValid = len(schemaErrors) == 0
	for _, se := range schemaErrors {
		rule := report.ErrorTypeSchema.String()
		if se.ParseError {
			rule = report.ErrorTypeParser.String()
		}
		r.AddFinding(report.NewError(rule, se.Message, report.Location{File: name, Path: se.Path}))
	}
	if !r.SchemaValid || opts.SchemaOnly {
		return res
	}

	// --- Phase 2: decode ---
	doc, err := ast.ParseDocument(data)
	if err != nil {
		r.AddFinding(report.NewError(report.ErrorTypeParser.String(), fmt.Sprintf("failed to decode document: %v", err),
			report.Location{File: name}))
		return res
	}
	r.Summary.ElementCount = doc.ElementCount()

	// --- Phase 3: build ---
	session := uuid.NewString()
	r.Session = session
	log := c.log.With("file", name)

	copts := opts.Compiler
	copts.Session = session
	if copts.Logger == nil {
		copts.Logger = log
	}
	if c.metrics != nil {
		copts.ObservePass = c.metrics.ObservePass
	}

	start := time.Now()
	model, err := compiler.Build(doc, copts)
	elapsed := time.Since(start)
	if err != nil {
		result := ResultError
		if report.IsUnsupported(err) {
			result = ResultUnsupported
		}
		c.observe(elapsed, result, nil, nil)
		log.Error("compilation failed", "session", session, "error", err)
		r.AddFinding(errorFinding(name, err))
		return res
	}

	r.AddFindings(lo.Map(model.Warnings(), func(w report.Finding, _ int) report.Finding {
		w.Location.File = name
		return w
	}))
	c.observe(elapsed, ResultSuccess, doc, model)
	res.Model = model
	return res
}

func (c *Checker) observe(elapsed time.Duration, result string, doc *ast.Document, model *compiler.PureModel) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveBuild(elapsed, result)
	if doc == nil {
		return
	}
	for kind, n := range elementCounts(doc) {
		c.metrics.AddElements(kind, n)
	}
	c.metrics.AddWarnings(len(model.Warnings()))
}

// elementCounts returns the number of elements of each kind in doc.
func elementCounts(doc *ast.Document) map[string]int {
	return map[string]int{
		"profile":     len(doc.Profiles),
		"class":       len(doc.Classes),
		"enumeration": len(doc.Enumerations),
		"association": len(doc.Associations),
		"function":    len(doc.Functions),
		"measure":     len(doc.Measures),
		"mapping":     len(doc.Mappings),
		"connection":  len(doc.Connections),
		"runtime":     len(doc.Runtimes),
		"extension":   len(doc.Extensions),
	}
}

// errorFinding turns a build failure into an error finding.
func errorFinding(file string, err error) report.Finding {
	if ce, ok := report.AsCompilationError(err); ok {
		return ce.Finding(file, "")
	}
	if report.IsUnsupported(err) {
		return report.NewError(RuleUnsupported, err.Error(), report.Location{File: file})
	}
	return report.NewError(report.ErrorTypeCompilation.String(), err.Error(), report.Location{File: file})
}
