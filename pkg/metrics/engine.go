package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks the transactional sale, drop, and reversal paths.
type EngineMetrics struct {
	duration   *prometheus.HistogramVec
	sales      prometheus.Counter
	drops      *prometheus.CounterVec
	reversals  *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_operation_duration_seconds",
		Help:    "Duration of engine unit-of-work commits in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	sales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_sales_recorded_total",
		Help: "Successfully committed sales.",
	})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_drops_recorded_total",
		Help: "Successfully committed inventory drops by reason.",
	}, []string{"reason"})
	reversals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_drop_reversals_total",
		Help: "Drop reversal attempts by outcome.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_inventory_rejections_total",
		Help: "Requests rejected for insufficient on-hand inventory.",
	}, []string{"operation"})
	reg.MustRegister(duration, sales, drops, reversals, rejections)
	return &EngineMetrics{
		duration:   duration,
		sales:      sales,
		drops:      drops,
		reversals:  reversals,
		rejections: rejections,
	}
}

// ObserveDuration records the commit duration for the named operation.
func (e *EngineMetrics) ObserveDuration(operation string, duration time.Duration) {
	if e == nil || e.duration == nil {
		return
	}
	e.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSaleRecorded increments the committed-sale counter.
func (e *EngineMetrics) IncSaleRecorded() {
	if e == nil || e.sales == nil {
		return
	}
	e.sales.Inc()
}

// IncDropRecorded increments the committed-drop counter for the reason.
func (e *EngineMetrics) IncDropRecorded(reason string) {
	if e == nil || e.drops == nil {
		return
	}
	e.drops.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncReversal increments the reversal counter for the outcome.
func (e *EngineMetrics) IncReversal(outcome string) {
	if e == nil || e.reversals == nil {
		return
	}
	e.reversals.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInventoryRejection increments the insufficient-inventory counter.
func (e *EngineMetrics) IncInventoryRejection(operation string) {
	if e == nil || e.rejections == nil {
		return
	}
	e.rejections.WithLabelValues(normalizeLabel(operation)).Inc()
}
