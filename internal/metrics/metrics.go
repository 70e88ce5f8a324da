// Package metrics holds the Prometheus collectors for compilation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "purec"
	subsystem = "compiler"
)

// CompilerMetrics holds prometheus metrics for model compilation.
type CompilerMetrics struct {
	buildTime *prometheus.HistogramVec
	passTime  *prometheus.HistogramVec
	elements  *prometheus.CounterVec
	warnings  prometheus.Counter
}

// NewCompilerMetrics creates unregistered collectors.
func NewCompilerMetrics() *CompilerMetrics {
	return &CompilerMetrics{
		buildTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "build_duration_seconds",
				Help:      "Model build time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"result"}, // "success", "error" or "unsupported"
		),
		passTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pass_duration_seconds",
				Help:      "Time spent in each build pass in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"pass"},
		),
		elements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "elements_total",
				Help:      "Packageable elements compiled, by kind.",
			},
			[]string{"kind"},
		),
		warnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "warnings_total",
				Help:      "Warnings reported by successful builds.",
			},
		),
	}
}

// ObserveBuild records a build duration under its result.
func (m *CompilerMetrics) ObserveBuild(elapsed time.Duration, result string) {
	m.buildTime.WithLabelValues(result).Observe(elapsed.Seconds())
}

// ObservePass records the duration of one pass. It has the signature of
// the compiler's pass hook.
func (m *CompilerMetrics) ObservePass(pass string, _ int, elapsed time.Duration) {
	m.passTime.WithLabelValues(pass).Observe(elapsed.Seconds())
}

// AddElements counts n compiled elements of kind. Zero counts still
// create the series.
func (m *CompilerMetrics) AddElements(kind string, n int) {
	m.elements.WithLabelValues(kind).Add(float64(n))
}

// AddWarnings counts n warnings.
func (m *CompilerMetrics) AddWarnings(n int) {
	m.warnings.Add(float64(n))
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *CompilerMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.buildTime, m.passTime, m.elements, m.warnings)
}

// WriteTextfile writes everything g gathers to path in the Prometheus
// text format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
