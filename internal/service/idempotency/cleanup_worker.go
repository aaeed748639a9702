package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultSweepBatchSize = 500
)

var (
	cleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_idempotency_cleanup_runs_total",
		Help: "Total number of idempotency cleanup runs grouped by result.",
	}, []string{"result"})
	cleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_idempotency_cleanup_deleted_total",
		Help: "Total number of deleted expired idempotency records.",
	})
	cleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_idempotency_cleanup_last_deleted",
		Help: "Number of deleted records during the last cleanup run.",
	})
)

// Config задаёт расписание очистки ключей идемпотентности.
// Нулевые поля получают значения по умолчанию.
type Config struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.WithField("component", "idempotency-cleanup")
	}
	if c.Interval <= 0 {
		c.Interval = defaultSweepInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultSweepBatchSize
	}
	return c
}

// CleanupWorker удаляет ключи идемпотентности с истёкшим TTL. Протухший
// ключ перестаёт блокировать повтор заказа с тем же Idempotency-Key.
type CleanupWorker struct {
	repo domain.IdempotencyRepository
	cfg  Config
}

// NewCleanupWorker создаёт воркер очистки ключей идемпотентности.
func NewCleanupWorker(repo domain.IdempotencyRepository, cfg Config) *CleanupWorker {
	return &CleanupWorker{repo: repo, cfg: cfg.withDefaults()}
}

// Run выполняет очистку сразу и затем по расписанию до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.cfg.Logger.Warn("idempotency cleanup worker is disabled: repo is nil")
		return
	}

	w.runOnce(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	deleted, err := w.Sweep(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		cleanupRunsTotal.WithLabelValues("error").Inc()
		w.cfg.Logger.WithError(err).Warn("idempotency cleanup run failed")
		return
	}

	cleanupRunsTotal.WithLabelValues("ok").Inc()
	cleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.cfg.Logger.WithField("deleted", deleted).Info("expired idempotency keys removed")
	}
}

// Sweep удаляет все записи с ttl <= before порциями BatchSize и возвращает
// суммарное число удалённых.
func (w *CleanupWorker) Sweep(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.repo.DeleteExpired(before, w.cfg.BatchSize)
		if err != nil {
			return total, err
		}

		total += deleted
		if deleted > 0 {
			cleanupDeletedTotal.Add(float64(deleted))
		}

		// Неполная порция означает, что просроченных записей больше нет.
		if deleted < w.cfg.BatchSize {
			return total, nil
		}
	}
}
