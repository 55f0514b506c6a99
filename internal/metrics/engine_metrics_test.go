package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewEngineMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newEngineMetricsWithRegisterer(reg)

	if m == nil {
		t.Fatal("newEngineMetricsWithRegisterer should not return nil")
	}
	if m.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if m.transitionsApplied == nil {
		t.Error("transitionsApplied counter vec should not be nil")
	}
	if m.transitionDuration == nil {
		t.Error("transitionDuration histogram should not be nil")
	}
	if m.reconcilePhase == nil {
		t.Error("reconcilePhase histogram vec should not be nil")
	}
	if m.activeTransitions == nil {
		t.Error("activeTransitions gauge should not be nil")
	}
}

func TestNewEngineMetricsWithRegisterer_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newEngineMetricsWithRegisterer(reg)
	// Повторная регистрация в том же registry должна вернуть существующие коллекторы.
	second := newEngineMetricsWithRegisterer(reg)

	if first == nil || second == nil {
		t.Fatal("both metric sets should be constructed")
	}
	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := counterValue(t, first.ordersCreated); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newEngineMetricsWithRegisterer(reg)

	m.RecordOrderCreated()
	m.RecordOrderRejected()
	m.RecordTransitionFailed()
	m.RecordTransitionNoop()
	m.RecordStockDebit()
	m.RecordStockRestore()
	m.RecordShortfalls(3)
	m.RecordShortfalls(0)
	m.RecordRestoreItemFailure()

	if got := counterValue(t, m.ordersCreated); got != 1 {
		t.Errorf("ordersCreated = %v, want 1", got)
	}
	if got := counterValue(t, m.shortfallsDetected); got != 3 {
		t.Errorf("shortfallsDetected = %v, want 3", got)
	}
	if got := counterValue(t, m.restoreItemFailures); got != 1 {
		t.Errorf("restoreItemFailures = %v, want 1", got)
	}
}

func TestRecordTransitionApplied_Labels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newEngineMetricsWithRegisterer(reg)

	m.RecordTransitionApplied("processing")
	m.RecordTransitionApplied("processing")
	m.RecordTransitionApplied("refused")

	if got := counterValue(t, m.transitionsApplied.WithLabelValues("processing")); got != 2 {
		t.Errorf("processing transitions = %v, want 2", got)
	}
	if got := counterValue(t, m.transitionsApplied.WithLabelValues("refused")); got != 1 {
		t.Errorf("refused transitions = %v, want 1", got)
	}
}

func TestRecordTransitionInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newEngineMetricsWithRegisterer(reg)

	m.RecordTransitionStarted()
	m.RecordTransitionStarted()
	m.RecordTransitionFinished()

	var metric dto.Metric
	if err := m.activeTransitions.Write(&metric); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1 {
		t.Fatalf("activeTransitions = %v, want 1", got)
	}
}

func TestRecordDurations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newEngineMetricsWithRegisterer(reg)

	m.RecordTransitionDuration(25 * time.Millisecond)
	m.RecordReconcilePhase("validate", 2*time.Millisecond)
	m.RecordReconcilePhase("commit", 4*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var sawTransition, sawPhase bool
	for _, fam := range families {
		switch fam.GetName() {
		case "storefront_transition_duration_seconds":
			sawTransition = true
		case "storefront_reconcile_phase_duration_seconds":
			sawPhase = true
		}
	}
	if !sawTransition {
		t.Error("transition duration histogram should be gathered")
	}
	if !sawPhase {
		t.Error("reconcile phase histogram should be gathered")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return metric.GetCounter().GetValue()
}
