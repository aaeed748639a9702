package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/messaging/kafka"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

var (
	entityEventPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_outbox_publish_attempts_total",
		Help: "Total number of entity event publish attempts grouped by result and event type.",
	}, []string{"result", "event_type"})
	outboxPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_outbox_pending_records",
		Help: "Current number of pending records in transactional outbox.",
	})
	outboxOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// Config задаёт параметры outbox-воркера. Нулевые поля получают значения
// по умолчанию; RetryBaseDelay < 0 отключает паузы между попытками.
type Config struct {
	Logger         *log.Entry
	DLQPublisher   domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.WithField("component", "outbox-worker")
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.RetryBaseDelay < 0 {
		c.RetryBaseDelay = 0
	}
	return c
}

// Worker переносит события мутаций маркетплейса из transactional outbox
// в entity-топик. События с неизвестным типом не ретраятся и уходят
// сразу в DLQ.
type Worker struct {
	repo domain.OutboxRepository
	sink domain.OutboxPublisher
	cfg  Config
}

// NewWorker создаёт outbox-воркер.
func NewWorker(repo domain.OutboxRepository, sink domain.OutboxPublisher, cfg Config) *Worker {
	return &Worker{
		repo: repo,
		sink: sink,
		cfg:  cfg.withDefaults(),
	}
}

// Run запускает периодический опрос outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.sink == nil {
		w.cfg.Logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл: обновляет метрики backlog и публикует
// очередной батч pending-событий.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.refreshBacklogMetrics()

	events, err := w.repo.PullPending(w.cfg.BatchSize)
	if err != nil {
		w.cfg.Logger.WithError(err).Warn("failed to pull pending outbox messages")
		return
	}

	sent := 0
	for _, event := range events {
		if ctx.Err() != nil {
			return
		}
		if w.deliver(ctx, event) {
			sent++
		}
	}

	if len(events) > 0 {
		w.cfg.Logger.WithFields(log.Fields{
			"batch": len(events),
			"sent":  sent,
		}).Debug("outbox batch processed")
		w.refreshBacklogMetrics()
	}
}

// deliver публикует одно событие; возвращает true при успехе.
// Любой окончательный отказ маркирует запись failed и дублирует её в DLQ.
func (w *Worker) deliver(ctx context.Context, event domain.OutboxMessage) bool {
	entry := w.cfg.Logger.WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
	})

	var publishErr error
	if !kafka.IsKnownEventType(event.EventType) {
		publishErr = fmt.Errorf("unknown entity event type %q", event.EventType)
		entry.Warn("outbox message has unknown event type, routing to DLQ")
	} else {
		publishErr = w.publishWithRetry(ctx, event)
	}

	if publishErr == nil {
		if err := w.repo.MarkSent(event.ID); err != nil {
			entry.WithError(err).Warn("failed to mark outbox as sent")
		}
		return true
	}

	entry.WithError(publishErr).Error("entity event publish failed")
	entityEventPublishes.WithLabelValues("failed", event.EventType).Inc()

	if err := w.publishToDLQ(event, publishErr); err != nil {
		entry.WithError(err).Warn("failed to publish to DLQ")
		entityEventPublishes.WithLabelValues("dlq_failed", event.EventType).Inc()
	}
	if err := w.repo.MarkFailed(event.ID); err != nil {
		entry.WithError(err).Warn("failed to mark outbox as failed")
	}
	return false
}

func (w *Worker) publishWithRetry(ctx context.Context, event domain.OutboxMessage) error {
	delay := w.cfg.RetryBaseDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := w.sink.Publish(event); err == nil {
			entityEventPublishes.WithLabelValues("sent", event.EventType).Inc()
			return nil
		} else {
			lastErr = err
			entityEventPublishes.WithLabelValues("retry_error", event.EventType).Inc()
		}

		if attempt >= w.cfg.MaxAttempts {
			return fmt.Errorf("publish failed after %d attempts: %w", w.cfg.MaxAttempts, lastErr)
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
}

func (w *Worker) publishToDLQ(event domain.OutboxMessage, publishErr error) error {
	if w.cfg.DLQPublisher == nil {
		return nil
	}

	payload, err := json.Marshal(kafka.NewDLQRecord(event, publishErr))
	if err != nil {
		return fmt.Errorf("marshal dlq record: %w", err)
	}

	dlqEvent := event
	dlqEvent.Payload = payload
	if err := w.cfg.DLQPublisher.Publish(dlqEvent); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}

	return nil
}

func (w *Worker) refreshBacklogMetrics() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.cfg.Logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	outboxPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		outboxOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	outboxOldestPendingAge.Set(age)
}
