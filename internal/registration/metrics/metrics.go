package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module. All methods are
// nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Entity resolutions by source, category and outcome ("created", "deduped")
	EntitiesResolved *prometheus.CounterVec

	// Association writes by source and category
	AssociationsCreated *prometheus.CounterVec
	AssociationsDeleted *prometheus.CounterVec

	// Value updates by source, category and outcome ("updated", "noop")
	ValueUpdates *prometheus.CounterVec

	// Related-entity fan-out latency per source
	RelatedLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all registration module metrics registered.
func New() *Metrics {
	return &Metrics{
		EntitiesResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_entities_resolved_total",
			Help: "Entity resolutions by source, category and outcome",
		}, []string{"source", "category", "outcome"}),

		AssociationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_associations_created_total",
			Help: "Associations created by source and category",
		}, []string{"source", "category"}),

		AssociationsDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_associations_deleted_total",
			Help: "Associations deleted by source and category",
		}, []string{"source", "category"}),

		ValueUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_value_updates_total",
			Help: "Entity value updates by source, category and outcome",
		}, []string{"source", "category", "outcome"}),

		RelatedLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registrar_related_fanout_duration_seconds",
			Help:    "Duration of the per-category related-entity fan-out",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}),
	}
}

// IncrementResolved records an entity resolution outcome.
func (m *Metrics) IncrementResolved(source, category string, created bool) {
	if m != nil {
		outcome := "deduped"
		if created {
			outcome = "created"
		}
		m.EntitiesResolved.WithLabelValues(source, category, outcome).Inc()
	}
}

// IncrementCreated records a created association.
func (m *Metrics) IncrementCreated(source, category string) {
	if m != nil {
		m.AssociationsCreated.WithLabelValues(source, category).Inc()
	}
}

// IncrementDeleted records a deleted association.
func (m *Metrics) IncrementDeleted(source, category string) {
	if m != nil {
		m.AssociationsDeleted.WithLabelValues(source, category).Inc()
	}
}

// IncrementUpdate records a value update outcome.
func (m *Metrics) IncrementUpdate(source, category string, noop bool) {
	if m != nil {
		outcome := "updated"
		if noop {
			outcome = "noop"
		}
		m.ValueUpdates.WithLabelValues(source, category, outcome).Inc()
	}
}

// ObserveRelatedLatency records the duration of a related-entity fan-out.
func (m *Metrics) ObserveRelatedLatency(source string, d time.Duration) {
	if m != nil {
		m.RelatedLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}
