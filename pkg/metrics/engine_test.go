package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestEngineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)

	metrics.ObserveDuration("record_sale", 120*time.Millisecond)
	metrics.IncSaleRecorded()
	metrics.IncDropRecorded("expired")
	metrics.IncReversal("reversed")
	metrics.IncReversal("window_expired")
	metrics.IncInventoryRejection("record_sale")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if mf := findMetricFamily(mfs, "engine_sales_recorded_total"); mf == nil {
		t.Fatal("expected engine_sales_recorded_total to be registered")
	} else if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected sales=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_drops_recorded_total", "reason", "expired"); err != nil {
		t.Fatalf("fetch drops: %v", err)
	} else if got != 1 {
		t.Fatalf("expected drops=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_drop_reversals_total", "outcome", "window_expired"); err != nil {
		t.Fatalf("fetch reversals: %v", err)
	} else if got != 1 {
		t.Fatalf("expected window_expired reversals=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_inventory_rejections_total", "operation", "record_sale"); err != nil {
		t.Fatalf("fetch rejections: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejections=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "engine_operation_duration_seconds", "operation", "record_sale"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestEngineMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *EngineMetrics
	metrics.ObserveDuration("record_sale", time.Second)
	metrics.IncSaleRecorded()
	metrics.IncDropRecorded("damaged")
	metrics.IncReversal("already_reversed")
	metrics.IncInventoryRejection("record_drop")

	empty := NewEngineMetrics(nil)
	empty.IncSaleRecorded()
	empty.IncReversal("reversed")
}
