package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeReserved = "reserved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ReservationMetrics records outcomes of the inventory reservation protocol.
type ReservationMetrics struct {
	attempts  *prometheus.CounterVec
	conflicts prometheus.Counter
	duration  prometheus.Histogram
}

// NewReservationMetrics registers the reservation metrics on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_attempts_total",
		Help: "Reserve calls by outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflicts_total",
		Help: "Transient storage conflicts that triggered a reserve retry.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reservation_duration_seconds",
		Help:    "Wall time of reserve calls including retries.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(attempts, conflicts, duration)
	return &ReservationMetrics{
		attempts:  attempts,
		conflicts: conflicts,
		duration:  duration,
	}
}

// Observe records one finished reserve call.
func (m *ReservationMetrics) Observe(outcome string, elapsed time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncConflict counts one retried conflict.
func (m *ReservationMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}
