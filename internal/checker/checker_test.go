package checker

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/extensions/relational"
	"github.com/foundry-zero/purec/internal/logging"
	"github.com/foundry-zero/purec/internal/metrics"
	"github.com/foundry-zero/purec/internal/report"
)

var firmExample = filepath.Join("..", "..", "testdata", "firm.json")

func fixture(name string) string { return filepath.Join("testdata", name) }

func newChecker(t *testing.T, opts ...Option) *Checker {
	t.Helper()
	c, err := NewChecker(opts...)
	require.NoError(t, err)
	return c
}

func withRelational() CheckOptions {
	opts := CheckOptions{Compiler: compiler.DefaultOptions()}
	opts.Compiler.Extensions = []compiler.Extension{relational.New()}
	return opts
}

func TestCheck_FirmExample(t *testing.T) {
	res := newChecker(t).Check(firmExample, CheckOptions{Compiler: compiler.DefaultOptions()})

	r := res.Report
	assert.True(t, r.SchemaValid)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.NotEmpty(t, r.Session)
	assert.Positive(t, r.Summary.ElementCount)
	require.NotNil(t, res.Model)
	assert.False(t, res.Failed(true))

	_, err := res.Model.Class("model::Person", report.UnknownSourceInformation)
	assert.NoError(t, err)
}

func TestCheck_SessionPerBuild(t *testing.T) {
	c := newChecker(t)
	a := c.Check(firmExample, CheckOptions{})
	b := c.Check(firmExample, CheckOptions{})
	assert.NotEqual(t, a.Report.Session, b.Report.Session)
}

func TestCheck_SchemaOnly(t *testing.T) {
	res := newChecker(t).Check(firmExample, CheckOptions{SchemaOnly: true})
	assert.True(t, res.Report.SchemaValid)
	assert.False(t, res.Report.HasErrors())
	assert.Nil(t, res.Model)
	assert.Empty(t, res.Report.Session)
}

func TestCheck_MissingFile(t *testing.T) {
	res := newChecker(t).Check(fixture("missing.json"), CheckOptions{})
	require.Len(t, res.Report.Errors, 1)
	assert.Equal(t, "INPUT", res.Report.Errors[0].Rule)
	assert.Contains(t, res.Report.Errors[0].Message, "cannot access file")
}

func TestCheck_InvalidJSON(t *testing.T) {
	res := newChecker(t).CheckBytes("broken.json", []byte(`{"elements": [`), CheckOptions{})
	assert.False(t, res.Report.SchemaValid)
	require.Len(t, res.Report.Errors, 1)
	assert.Equal(t, "PARSER", res.Report.Errors[0].Rule)
	assert.Equal(t, "broken.json", res.Report.Errors[0].Location.File)
}

func TestCheck_SchemaErrors(t *testing.T) {
	res := newChecker(t).Check(fixture("invalid-schema.json"), CheckOptions{})
	assert.False(t, res.Report.SchemaValid)
	require.NotEmpty(t, res.Report.Errors)
	for _, e := range res.Report.Errors {
		assert.Equal(t, "SCHEMA", e.Rule)
	}
	assert.Nil(t, res.Model)
}

func TestCheck_CompilationError(t *testing.T) {
	res := newChecker(t).Check(fixture("cycle.json"), CheckOptions{Compiler: compiler.DefaultOptions()})

	require.Len(t, res.Report.Errors, 1)
	e := res.Report.Errors[0]
	assert.Equal(t, "COMPILATION", e.Rule)
	assert.Contains(t, e.Message, "Cycle detected in class supertype hierarchy: test::A -> test::B -> test::A")
	assert.Equal(t, "cycle.pure", e.Location.Source.SourceID)
	assert.Equal(t, fixture("cycle.json"), e.Location.File)
	assert.Nil(t, res.Model)
	assert.True(t, res.Failed(false))
}

func TestCheck_CycleCheckDisabled(t *testing.T) {
	res := newChecker(t).Check(fixture("cycle.json"), CheckOptions{})
	assert.Empty(t, res.Report.Errors)
	assert.NotNil(t, res.Model)
}

func TestCheck_Warnings(t *testing.T) {
	res := newChecker(t).Check(fixture("warning.json"), CheckOptions{Compiler: compiler.DefaultOptions()})

	assert.Empty(t, res.Report.Errors)
	require.Len(t, res.Report.Warnings, 1)
	w := res.Report.Warnings[0]
	assert.Equal(t, "Error 'nope' can't be found in the mapping test::M", w.Message)
	assert.Equal(t, "test::M", w.Location.Path)
	assert.Equal(t, fixture("warning.json"), w.Location.File)

	assert.False(t, res.Failed(false))
	assert.True(t, res.Failed(true))
}

func TestCheck_Extensions(t *testing.T) {
	c := newChecker(t)

	t.Run("disabled", func(t *testing.T) {
		res := c.Check(fixture("relational.json"), CheckOptions{})
		require.Len(t, res.Report.Errors, 1)
		assert.Equal(t, RuleUnsupported, res.Report.Errors[0].Rule)
		assert.Nil(t, res.Model)
	})
	t.Run("enabled", func(t *testing.T) {
		res := c.Check(fixture("relational.json"), withRelational())
		assert.Empty(t, res.Report.Errors)
		require.NotNil(t, res.Model)

		store, err := res.Model.Store("test::Db", report.UnknownSourceInformation)
		require.NoError(t, err)
		assert.IsType(t, &relational.Database{}, store)
	})
}

func TestCheck_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCompilerMetrics()
	m.MustRegister(reg)
	c := newChecker(t, WithMetrics(m))

	c.Check(firmExample, CheckOptions{})
	c.Check(fixture("relational.json"), CheckOptions{})

	n, err := testutil.GatherAndCount(reg, "purec_compiler_build_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per result")

	n, err = testutil.GatherAndCount(reg, "purec_compiler_elements_total")
	require.NoError(t, err)
	assert.Equal(t, 10, n, "one series per element kind")

	n, err = testutil.GatherAndCount(reg, "purec_compiler_pass_duration_seconds")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestCheck_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	c := newChecker(t, WithLogger(logging.NewJSONLogger(&buf, slog.LevelError)))

	res := c.Check(fixture("cycle.json"), CheckOptions{Compiler: compiler.DefaultOptions()})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "compilation failed", record["msg"])
	assert.Equal(t, res.Report.Session, record["session"])
	assert.Equal(t, fixture("cycle.json"), record["file"])
}

func TestErrorFinding_Unsupported(t *testing.T) {
	f := errorFinding("x.json", report.Unsupported("element type 'service'"))
	assert.Equal(t, RuleUnsupported, f.Rule)
	assert.Equal(t, report.SeverityError, f.Severity)
	assert.Equal(t, "unsupported operation: element type 'service'", f.Message)
}
