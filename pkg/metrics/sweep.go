package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics tracks the background sweeps that lapse expired undo windows
// and prune delivered outbox rows.
type SweepMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewSweepMetrics registers the sweep metrics on the provided registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of background sweep cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"sweep"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_success_total",
		Help: "Completed sweep cycles.",
	}, []string{"sweep"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_failure_total",
		Help: "Failed sweep cycles.",
	}, []string{"sweep"})
	reg.MustRegister(duration, success, failure)
	return &SweepMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the cycle duration for the named sweep.
func (s *SweepMetrics) ObserveDuration(sweep string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(sweep)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named sweep.
func (s *SweepMetrics) IncSuccess(sweep string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(sweep)).Inc()
}

// IncFailure increments the failure counter for the named sweep.
func (s *SweepMetrics) IncFailure(sweep string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(sweep)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
