package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds the analyzer's default collectors. The CLI gathers
// from it when writing a metrics file.
var MetricsRegistry = prometheus.NewRegistry()

var defaultMetrics = NewMetrics(MetricsRegistry)

// Metrics is the set of Prometheus collectors updated during analysis.
type Metrics struct {
	// files counts attempted files.
	//
	// Labels:
	//   - language: "python", "typescript", "javascript"
	//   - status: one of the FileStatus values
	files *prometheus.CounterVec

	// functions counts extracted functions by language.
	functions *prometheus.CounterVec

	// contextFailures counts functions whose context could not be extracted.
	contextFailures *prometheus.CounterVec

	// sinkFailures counts failed sink upserts.
	sinkFailures prometheus.Counter

	// fileDuration measures the time spent analyzing one file.
	fileDuration prometheus.Histogram
}

// NewMetrics creates and registers the analyzer collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		files: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "funcgraph",
				Name:      "files_total",
				Help:      "Files attempted during analysis by language and outcome.",
			},
			[]string{"language", "status"},
		),
		functions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "funcgraph",
				Name:      "functions_total",
				Help:      "Functions extracted by language.",
			},
			[]string{"language"},
		),
		contextFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "funcgraph",
				Name:      "context_failures_total",
				Help:      "Functions whose context extraction failed.",
			},
			[]string{"language"},
		),
		sinkFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "funcgraph",
				Name:      "sink_failures_total",
				Help:      "Failed sink upserts.",
			},
		),
		fileDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "funcgraph",
				Name:      "file_duration_seconds",
				Help:      "Time spent analyzing a single file in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
	}
}
