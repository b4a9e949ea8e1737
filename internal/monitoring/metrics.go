// Package monitoring exposes Prometheus metrics for estimates, the query
// cascade and datastore calls, plus a background datastore probe.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tejas"

// Metrics holds the service's collectors. A nil *Metrics is valid and
// records nothing, so callers never need to guard.
type Metrics struct {
	Estimates        *prometheus.CounterVec   // labels: jurisdiction, outcome
	EstimateDuration *prometheus.HistogramVec // labels: jurisdiction
	CascadeAttempts  *prometheus.CounterVec   // labels: jurisdiction, tier
	CascadeMatches   *prometheus.CounterVec   // labels: jurisdiction, tier
	DatastoreCalls   *prometheus.CounterVec   // labels: outcome={ok,empty,error}
	DatastoreUp      *prometheus.GaugeVec     // labels: jurisdiction
	ArtifactsStored  *prometheus.CounterVec   // labels: format
}

// NewMetrics creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Estimate requests by jurisdiction and outcome.",
		}, []string{"jurisdiction", "outcome"}),
		EstimateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimate_duration_seconds",
			Help:      "End-to-end estimate latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"jurisdiction"}),
		CascadeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_attempts_total",
			Help:      "Datastore queries issued by the cascade, by tier.",
		}, []string{"jurisdiction", "tier"}),
		CascadeMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_matches_total",
			Help:      "Cascade resolutions by the tier that matched.",
		}, []string{"jurisdiction", "tier"}),
		DatastoreCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datastore_calls_total",
			Help:      "Parcel datastore queries by outcome.",
		}, []string{"outcome"}),
		DatastoreUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datastore_up",
			Help:      "1 when the jurisdiction's datastore answered the last probe.",
		}, []string{"jurisdiction"}),
		ArtifactsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_stored_total",
			Help:      "Vector-file artifacts rendered and stored, by format.",
		}, []string{"format"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Estimates,
			m.EstimateDuration,
			m.CascadeAttempts,
			m.CascadeMatches,
			m.DatastoreCalls,
			m.DatastoreUp,
			m.ArtifactsStored,
		)
	}
	return m
}

// ObserveEstimate records one finished estimate.
func (m *Metrics) ObserveEstimate(jurisdiction, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Estimates.WithLabelValues(jurisdiction, outcome).Inc()
	m.EstimateDuration.WithLabelValues(jurisdiction).Observe(elapsed.Seconds())
}

// CascadeAttempt records a query issued at tier.
func (m *Metrics) CascadeAttempt(jurisdiction, tier string) {
	if m == nil {
		return
	}
	m.CascadeAttempts.WithLabelValues(jurisdiction, tier).Inc()
}

// CascadeMatch records the tier that produced the match.
func (m *Metrics) CascadeMatch(jurisdiction, tier string) {
	if m == nil {
		return
	}
	m.CascadeMatches.WithLabelValues(jurisdiction, tier).Inc()
}

// DatastoreCall records a datastore query outcome.
func (m *Metrics) DatastoreCall(outcome string) {
	if m == nil {
		return
	}
	m.DatastoreCalls.WithLabelValues(outcome).Inc()
}

// SetDatastoreUp records a probe result.
func (m *Metrics) SetDatastoreUp(jurisdiction string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.DatastoreUp.WithLabelValues(jurisdiction).Set(v)
}

// ArtifactStored records a stored artifact.
func (m *Metrics) ArtifactStored(format string) {
	if m == nil {
		return
	}
	m.ArtifactsStored.WithLabelValues(format).Inc()
}
