package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOpsMetrics(t *testing.T) {
	metrics := newOpsMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newOpsMetricsWithRegisterer should not return nil")
	}
	if metrics.operationsTotal == nil {
		t.Error("operationsTotal counter vec should not be nil")
	}
	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if metrics.insufficientStock == nil {
		t.Error("insufficientStock counter should not be nil")
	}
	if metrics.conflictRetries == nil {
		t.Error("conflictRetries counter should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
	if metrics.auditEvents == nil {
		t.Error("auditEvents counter should not be nil")
	}
	if metrics.inFlightOps == nil {
		t.Error("inFlightOps gauge should not be nil")
	}
}

func TestNewOpsMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newOpsMetricsWithRegisterer(reg)
	second := newOpsMetricsWithRegisterer(reg)

	// Повторная регистрация возвращает существующие коллекторы, а не паникует.
	if first.insufficientStock != second.insufficientStock {
		t.Error("expected shared counter instance on re-registration")
	}
}

func TestRecordOperation(t *testing.T) {
	metrics := newOpsMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOperation("place_order", nil)
	metrics.RecordOperation("place_order", nil)
	metrics.RecordOperation("place_order", errors.New("boom"))

	okMetric := &dto.Metric{}
	if err := metrics.operationsTotal.WithLabelValues("place_order", ResultOK).Write(okMetric); err != nil {
		t.Fatalf("failed to write ok metric: %v", err)
	}
	if okMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 ok operations, got %f", okMetric.Counter.GetValue())
	}

	errMetric := &dto.Metric{}
	if err := metrics.operationsTotal.WithLabelValues("place_order", ResultError).Write(errMetric); err != nil {
		t.Fatalf("failed to write error metric: %v", err)
	}
	if errMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 failed operation, got %f", errMetric.Counter.GetValue())
	}
}

func TestRecordOperationDuration(t *testing.T) {
	metrics := newOpsMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOperationDuration("create_customer", 100*time.Millisecond)
	metrics.RecordOperationDuration("create_customer", 500*time.Millisecond)

	observer := metrics.operationDuration.WithLabelValues("create_customer")
	metric := &dto.Metric{}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
	sum := metric.Histogram.GetSampleSum()
	if sum < 0.55 || sum > 0.65 {
		t.Errorf("expected sum around 0.6, got %f", sum)
	}
}

func TestRecordDomainCounters(t *testing.T) {
	metrics := newOpsMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordInsufficientStock()
	metrics.RecordConflictRetry()
	metrics.RecordConflictRetry()
	metrics.RecordOutboxEvent()
	metrics.RecordAuditEvent()

	assertCounter := func(name string, counter prometheus.Counter, want float64) {
		t.Helper()
		metric := &dto.Metric{}
		if err := counter.Write(metric); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		if metric.Counter.GetValue() != want {
			t.Errorf("%s: expected %f, got %f", name, want, metric.Counter.GetValue())
		}
	}

	assertCounter("insufficientStock", metrics.insufficientStock, 1.0)
	assertCounter("conflictRetries", metrics.conflictRetries, 2.0)
	assertCounter("outboxEvents", metrics.outboxEvents, 1.0)
	assertCounter("auditEvents", metrics.auditEvents, 1.0)
}

func TestInFlightOperations(t *testing.T) {
	metrics := newOpsMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOperationStarted()
	metrics.RecordOperationStarted()
	metrics.RecordOperationFinished()

	metric := &dto.Metric{}
	if err := metrics.inFlightOps.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected 1.0 in-flight operation, got %f", metric.Gauge.GetValue())
	}
}
