package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics содержит метрики движка заказов.
type EngineMetrics struct {
	// Счётчики операций
	ordersCreated       prometheus.Counter
	ordersRejected      prometheus.Counter
	transitionsApplied  *prometheus.CounterVec
	transitionsFailed   prometheus.Counter
	transitionsNoop     prometheus.Counter
	stockDebits         prometheus.Counter
	stockRestores       prometheus.Counter
	shortfallsDetected  prometheus.Counter
	restoreItemFailures prometheus.Counter

	// Гистограммы времени выполнения
	transitionDuration prometheus.Histogram
	reconcilePhase     *prometheus.HistogramVec

	// Gauge для активных переходов
	activeTransitions prometheus.Gauge
}

// NewEngineMetrics создаёт метрики движка в default registerer.
func NewEngineMetrics() *EngineMetrics {
	return newEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders created by the order factory",
		}),
		ordersRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_rejected_total",
			Help: "Total number of placeOrder calls rejected during validation",
		}),
		transitionsApplied: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transitions_applied_total",
			Help: "Total number of applied status transitions grouped by target status",
		}, []string{"to"}),
		transitionsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_transitions_failed_total",
			Help: "Total number of failed status transitions",
		}),
		transitionsNoop: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_transitions_noop_total",
			Help: "Total number of idempotent no-op transitions",
		}),
		stockDebits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_debits_total",
			Help: "Total number of committed stock debits",
		}),
		stockRestores: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_restores_total",
			Help: "Total number of stock restore passes",
		}),
		shortfallsDetected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_shortfalls_total",
			Help: "Total number of under-stocked items found during validation",
		}),
		restoreItemFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_restore_item_failures_total",
			Help: "Total number of per-item failures swallowed during restore",
		}),
		transitionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_transition_duration_seconds",
			Help:    "Duration of order status transitions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		reconcilePhase: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_reconcile_phase_duration_seconds",
			Help:    "Duration of stock reconciliation phases in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"phase"}),
		activeTransitions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_transitions",
			Help: "Number of currently running status transitions",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *EngineMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderRejected увеличивает счётчик отклонённых оформлений.
func (m *EngineMetrics) RecordOrderRejected() {
	m.ordersRejected.Inc()
}

// RecordTransitionApplied увеличивает счётчик применённых переходов.
func (m *EngineMetrics) RecordTransitionApplied(to string) {
	m.transitionsApplied.WithLabelValues(to).Inc()
}

// RecordTransitionFailed увеличивает счётчик неудачных переходов.
func (m *EngineMetrics) RecordTransitionFailed() {
	m.transitionsFailed.Inc()
}

// RecordTransitionNoop увеличивает счётчик идемпотентных no-op переходов.
func (m *EngineMetrics) RecordTransitionNoop() {
	m.transitionsNoop.Inc()
}

// RecordStockDebit увеличивает счётчик успешных списаний стока.
func (m *EngineMetrics) RecordStockDebit() {
	m.stockDebits.Inc()
}

// RecordStockRestore увеличивает счётчик проходов восстановления стока.
func (m *EngineMetrics) RecordStockRestore() {
	m.stockRestores.Inc()
}

// RecordShortfalls добавляет найденные нехватки к счётчику.
func (m *EngineMetrics) RecordShortfalls(count int) {
	if count > 0 {
		m.shortfallsDetected.Add(float64(count))
	}
}

// RecordRestoreItemFailure увеличивает счётчик проглоченных ошибок restore.
func (m *EngineMetrics) RecordRestoreItemFailure() {
	m.restoreItemFailures.Inc()
}

// RecordTransitionDuration записывает длительность перехода.
func (m *EngineMetrics) RecordTransitionDuration(duration time.Duration) {
	m.transitionDuration.Observe(duration.Seconds())
}

// RecordReconcilePhase записывает длительность фазы reconciliation.
func (m *EngineMetrics) RecordReconcilePhase(phase string, duration time.Duration) {
	m.reconcilePhase.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordTransitionStarted увеличивает количество активных переходов.
func (m *EngineMetrics) RecordTransitionStarted() {
	m.activeTransitions.Inc()
}

// RecordTransitionFinished уменьшает количество активных переходов.
func (m *EngineMetrics) RecordTransitionFinished() {
	m.activeTransitions.Dec()
}
