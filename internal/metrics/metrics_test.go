package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBuild(t *testing.T) {
	m := NewCompilerMetrics()

	m.ObserveBuild(2*time.Millisecond, "success")
	assert.Equal(t, 1, testutil.CollectAndCount(m.buildTime))

	m.ObserveBuild(time.Millisecond, "error")
	m.ObserveBuild(time.Millisecond, "error")
	assert.Equal(t, 2, testutil.CollectAndCount(m.buildTime))
}

func TestObservePass(t *testing.T) {
	m := NewCompilerMetrics()
	m.ObservePass("classes.declare", 4, time.Microsecond)
	m.ObservePass("classes.structure", 4, time.Microsecond)
	m.ObservePass("classes.declare", 2, time.Microsecond)
	assert.Equal(t, 2, testutil.CollectAndCount(m.passTime))
}

func TestAddElementsAndWarnings(t *testing.T) {
	m := NewCompilerMetrics()
	m.AddElements("class", 3)
	m.AddElements("class", 2)
	m.AddElements("mapping", 0)
	m.AddWarnings(2)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.elements.WithLabelValues("class")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.elements.WithLabelValues("mapping")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.warnings))
}

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCompilerMetrics()
	m.MustRegister(reg)
	m.AddWarnings(1)

	assert.Panics(t, func() { m.MustRegister(reg) })

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP purec_compiler_warnings_total Warnings reported by successful builds.
# TYPE purec_compiler_warnings_total counter
purec_compiler_warnings_total 1
`), "purec_compiler_warnings_total")
	assert.NoError(t, err)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCompilerMetrics()
	m.MustRegister(reg)
	m.AddElements("class", 7)

	path := filepath.Join(t.TempDir(), "purec.prom")
	require.NoError(t, WriteTextfile(reg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `purec_compiler_elements_total{kind="class"} 7`)
}
