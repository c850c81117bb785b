package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Booking decision outcomes.
const (
	OutcomeAccepted     = "accepted"
	OutcomeConflict     = "conflict"
	OutcomeInvalidRange = "invalid_range"
	OutcomeOwner        = "owner"
	OutcomeSpotNotFound = "spot_not_found"
	OutcomeError        = "error"
)

type Metrics struct {
	decisions *prometheus.CounterVec
	lockWait  prometheus.Histogram
	listed    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotbook",
			Subsystem: "bookings",
			Name:      "decisions_total",
			Help:      "Booking requests by outcome.",
		}, []string{"outcome"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spotbook",
			Subsystem: "bookings",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the per-spot write lock.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		listed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spotbook",
			Subsystem: "bookings",
			Name:      "availability_queries_total",
			Help:      "Booking list requests served.",
		}),
	}
	reg.MustRegister(m.decisions, m.lockWait, m.listed)
	return m
}

// Nop returns metrics registered nowhere. Used by tests.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) Decision(outcome string) {
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LockWait(d time.Duration) {
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) Listed() {
	m.listed.Inc()
}

// Decisions exposes the counter for one outcome.
func (m *Metrics) Decisions(outcome string) prometheus.Counter {
	return m.decisions.WithLabelValues(outcome)
}
