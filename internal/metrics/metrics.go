package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for sentence compilation.
type Metrics struct {
	// Compiled sentences by source (cli, watch, grpc, http, mcp)
	Compiled *prometheus.CounterVec

	// Rejected lines by error kind
	Rejected *prometheus.CounterVec

	// Lines whose fingerprint was already in the ledger
	Duplicates prometheus.Counter

	// Parse + canonicalize + fingerprint latency
	CompileLatency prometheus.Histogram
}

// New registers all compiler metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Compiled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hglc_sentences_compiled_total",
			Help: "Total sentences compiled by source",
		}, []string{"source"}),

		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hglc_sentences_rejected_total",
			Help: "Total lines rejected by error kind",
		}, []string{"kind"}),

		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "hglc_sentences_duplicate_total",
			Help: "Total compiled sentences already present in the ledger",
		}),

		CompileLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hglc_compile_duration_seconds",
			Help:    "Duration of compiling one line",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}
}

// IncrementCompiled records a successful compile from source.
func (m *Metrics) IncrementCompiled(source string) {
	if m != nil {
		m.Compiled.WithLabelValues(source).Inc()
	}
}

// IncrementRejected records a rejected line.
func (m *Metrics) IncrementRejected(kind string) {
	if m != nil {
		m.Rejected.WithLabelValues(kind).Inc()
	}
}

// IncrementDuplicate records a ledger hit.
func (m *Metrics) IncrementDuplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}

// ObserveCompileLatency records the duration of one compile.
func (m *Metrics) ObserveCompileLatency(d time.Duration) {
	if m != nil {
		m.CompileLatency.Observe(d.Seconds())
	}
}
