package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения лейбла result для счётчика операций.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// OpsMetrics содержит метрики транзакционных операций маркетплейса.
type OpsMetrics struct {
	// Счётчик операций с разбивкой по имени и результату
	operationsTotal *prometheus.CounterVec

	// Гистограмма времени выполнения операций
	operationDuration *prometheus.HistogramVec

	// Счётчики доменных событий
	insufficientStock prometheus.Counter
	conflictRetries   prometheus.Counter
	outboxEvents      prometheus.Counter
	auditEvents       prometheus.Counter

	// Gauge для операций в полёте
	inFlightOps prometheus.Gauge
}

// NewOpsMetrics создаёт новый экземпляр метрик операций.
func NewOpsMetrics() *OpsMetrics {
	return newOpsMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOpsMetricsWithRegisterer(registerer prometheus.Registerer) *OpsMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OpsMetrics{
		operationsTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "market_operations_total",
			Help: "Total number of marketplace operations by name and result",
		}, []string{"op", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "market_operation_duration_seconds",
			Help:    "Duration of marketplace operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		insufficientStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_insufficient_stock_total",
			Help: "Total number of order placements rejected due to insufficient stock",
		}),
		conflictRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_conflict_retries_total",
			Help: "Total number of lock-conflict retries during order placement",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		auditEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_audit_events_total",
			Help: "Total number of audit events recorded",
		}),
		inFlightOps: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "market_in_flight_operations",
			Help: "Number of marketplace operations currently in flight",
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

// RecordOperation фиксирует результат выполнения операции.
func (m *OpsMetrics) RecordOperation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operationsTotal.WithLabelValues(op, result).Inc()
}

// RecordOperationDuration записывает время выполнения операции.
func (m *OpsMetrics) RecordOperationDuration(op string, duration time.Duration) {
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordInsufficientStock увеличивает счётчик отказов из-за нехватки остатка.
func (m *OpsMetrics) RecordInsufficientStock() {
	m.insufficientStock.Inc()
}

// RecordConflictRetry увеличивает счётчик повторов из-за конфликта блокировок.
func (m *OpsMetrics) RecordConflictRetry() {
	m.conflictRetries.Inc()
}

// RecordOutboxEvent увеличивает счётчик поставленных в outbox событий.
func (m *OpsMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordAuditEvent увеличивает счётчик записей аудита.
func (m *OpsMetrics) RecordAuditEvent() {
	m.auditEvents.Inc()
}

// RecordOperationStarted увеличивает число операций в полёте.
func (m *OpsMetrics) RecordOperationStarted() {
	m.inFlightOps.Inc()
}

// RecordOperationFinished уменьшает число операций в полёте.
func (m *OpsMetrics) RecordOperationFinished() {
	m.inFlightOps.Dec()
}
