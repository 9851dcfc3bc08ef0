// Package metrics exposes engine counters on a private Prometheus registry.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eligibility"

// Evaluation outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

type Recorder struct {
	registry       *prometheus.Registry
	evaluations    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	rejections     *prometheus.CounterVec
	lenient        *prometheus.CounterVec
	lookupFailures *prometheus.CounterVec
	admitted       *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Eligibility determinations by category and outcome.",
		}, []string{"category", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one eligibility determination.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"category"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Programmes rejected, by the gate that rejected them.",
		}, []string{"category", "gate"}),
		lenient: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lenient_passes_total",
			Help:      "Checks passed only because data was missing or malformed.",
		}, []string{"category", "kind"}),
		lookupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_failures_total",
			Help:      "Programmes skipped because their detail lookup failed.",
		}, []string{"category"}),
		admitted: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eligible_courses",
			Help:      "Number of courses returned per determination.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"category"}),
	}
	r.registry.MustRegister(
		r.evaluations, r.duration, r.rejections, r.lenient, r.lookupFailures, r.admitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveEvaluation(category, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(category, outcome).Inc()
	r.duration.WithLabelValues(category).Observe(d.Seconds())
}

func (r *Recorder) ObserveAdmitted(category string, n int) {
	if r == nil {
		return
	}
	r.admitted.WithLabelValues(category).Observe(float64(n))
}

func (r *Recorder) AddRejections(category, gate string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.rejections.WithLabelValues(category, gate).Add(float64(n))
}

// AddLenient counts lenient passes; kind is "requirement" or "grade".
func (r *Recorder) AddLenient(category, kind string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.lenient.WithLabelValues(category, kind).Add(float64(n))
}

func (r *Recorder) AddLookupFailures(category string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.lookupFailures.WithLabelValues(category).Add(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
