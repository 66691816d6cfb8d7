// Package satmetrics instruments pass/eclipse search iteration with
// Prometheus counters and a duration histogram. It is wired at the iterator
// boundary only (Next() calls), never inside the hot elevation or
// illumination kernels, which spec §4.6 forbids adding work to; individual
// propagation calls are not counted.
package satmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder bundles the metrics this module exposes. A nil *Recorder is
// valid and records nothing, so callers can skip instrumentation in tests
// without special-casing.
type Recorder struct {
	PassesYielded    prometheus.Counter
	EclipsesYielded  prometheus.Counter
	SearchesFailed   *prometheus.CounterVec
	SearchDuration   *prometheus.HistogramVec
}

// NewRecorder registers the module's metrics against reg and returns a
// Recorder. Pass prometheus.NewRegistry() in tests/examples, or
// prometheus.DefaultRegisterer in a long-running service.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		PassesYielded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satpredict",
			Name:      "passes_yielded_total",
			Help:      "Number of satellite passes yielded by pass.Search/SearchSmart.",
		}),
		EclipsesYielded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satpredict",
			Name:      "eclipses_yielded_total",
			Help:      "Number of eclipse intervals yielded by eclipse.Search.",
		}),
		SearchesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satpredict",
			Name:      "searches_failed_total",
			Help:      "Number of pass/eclipse searches that terminated in error.",
		}, []string{"kind"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "satpredict",
			Name:      "search_duration_seconds",
			Help:      "Wall-clock time of a single pass/eclipse search iteration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(r.PassesYielded, r.EclipsesYielded, r.SearchesFailed, r.SearchDuration)
	return r
}

func (r *Recorder) recordPass() {
	if r == nil {
		return
	}
	r.PassesYielded.Inc()
}

func (r *Recorder) recordEclipse() {
	if r == nil {
		return
	}
	r.EclipsesYielded.Inc()
}

func (r *Recorder) recordFailure(kind string) {
	if r == nil {
		return
	}
	r.SearchesFailed.WithLabelValues(kind).Inc()
}

func (r *Recorder) observeDuration(kind string, seconds float64) {
	if r == nil {
		return
	}
	r.SearchDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordPassYielded increments the passes-yielded counter.
func (r *Recorder) RecordPassYielded() { r.recordPass() }

// RecordEclipseYielded increments the eclipses-yielded counter.
func (r *Recorder) RecordEclipseYielded() { r.recordEclipse() }

// RecordSearchFailure increments the searches-failed counter for kind
// ("pass" or "eclipse").
func (r *Recorder) RecordSearchFailure(kind string) { r.recordFailure(kind) }

// ObserveSearchDuration records a search iteration's wall-clock duration in
// seconds for kind ("pass" or "eclipse").
func (r *Recorder) ObserveSearchDuration(kind string, seconds float64) {
	r.observeDuration(kind, seconds)
}
