// Package metrics exposes pipeline counters on a private Prometheus
// registry. The CLI dumps them to a textfile after a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every molprint metric.
type Registry struct {
	registry *prometheus.Registry

	CSGOpsTotal       *prometheus.CounterVec
	CSGDuration       *prometheus.HistogramVec
	CSGRetriesTotal   *prometheus.CounterVec
	SoftFailuresTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	Groups            prometheus.Gauge
	InteractionEdges  prometheus.Gauge
	OverlapTestsTotal prometheus.Counter
	ClassifiedTotal   *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.CSGOpsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molprint_csg_ops_total",
			Help: "Boolean operations by operation and outcome",
		},
		[]string{"op", "outcome"}, // outcome: ok, retried, repaired, failed
	)
	r.CSGDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "molprint_csg_duration_seconds",
			Help:    "Duration of boolean operations in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		},
		[]string{"op"},
	)
	r.CSGRetriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molprint_csg_retries_total",
			Help: "Boolean retries by strategy",
		},
		[]string{"strategy"}, // fallback, repair
	)
	r.SoftFailuresTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molprint_soft_failures_total",
			Help: "Missing or stale references skipped, by stage",
		},
		[]string{"stage"},
	)
	r.StageDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "molprint_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	r.Groups = f.NewGauge(prometheus.GaugeOpts{
		Name: "molprint_groups",
		Help: "Number of groups produced by the last grouping run",
	})
	r.InteractionEdges = f.NewGauge(prometheus.GaugeOpts{
		Name: "molprint_interaction_edges",
		Help: "Number of sphere-cylinder edges in the interaction index",
	})
	r.OverlapTestsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "molprint_overlap_tests_total",
		Help: "Exact mesh overlap tests performed",
	})
	r.ClassifiedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molprint_classified_total",
			Help: "Primitives selected by classifier",
		},
		[]string{"classifier"},
	)
	return r
}

// Gatherer returns the underlying registry for exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// RecordCSG records one boolean operation.
func (r *Registry) RecordCSG(op, outcome string, d time.Duration) {
	r.CSGOpsTotal.WithLabelValues(op, outcome).Inc()
	r.CSGDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Registry) RecordRetry(strategy string) {
	r.CSGRetriesTotal.WithLabelValues(strategy).Inc()
}

func (r *Registry) RecordSoftFailure(stage string) {
	r.SoftFailuresTotal.WithLabelValues(stage).Inc()
}

func (r *Registry) RecordStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Registry) RecordClassified(classifier string, n int) {
	r.ClassifiedTotal.WithLabelValues(classifier).Add(float64(n))
}
