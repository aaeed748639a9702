package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/market/internal/health"
	"github.com/vladislavdragonenkov/market/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/market/internal/service/httpapi"
	"github.com/vladislavdragonenkov/market/internal/service/idempotency"
	"github.com/vladislavdragonenkov/market/internal/service/market"
	"github.com/vladislavdragonenkov/market/internal/service/outbox"
	"github.com/vladislavdragonenkov/market/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает зависимости и запускает HTTP API, metrics-сервер и фоновые
// воркеры. Блокируется до отмены ctx или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	service := market.NewService(
		deps.Customers,
		deps.Products,
		deps.Orders,
		deps.Sales,
		deps.Outbox,
		deps.Audit,
		logger.WithField("layer", "service"),
	)

	handler := httpapi.NewHandler(service, deps.Idempotency, logger.WithField("layer", "http"))

	// Kafka опционален: без брокера outbox копит pending-сообщения,
	// а API продолжает работать.
	kafkaProducer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	if kafkaErr != nil {
		logger.Warn("outbox publishing disabled: kafka unavailable")
	}
	defer closeKafka(kafkaProducer, logger)

	var workers sync.WaitGroup
	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.OutboxTopic)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.DLQTopic)

		worker := outbox.NewWorker(deps.Outbox, publisher, outbox.Config{
			Logger:         logger.WithField("layer", "outbox"),
			DLQPublisher:   dlqPublisher,
			PollInterval:   cfg.OutboxPollInterval,
			BatchSize:      cfg.OutboxBatchSize,
			MaxAttempts:    cfg.OutboxMaxAttempts,
			RetryBaseDelay: cfg.OutboxRetryDelay,
		})
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker.Run(workersCtx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.Idempotency, idempotency.Config{
		Logger:    logger.WithField("layer", "idempotency"),
		Interval:  cfg.IdempotencyCleanupInterval,
		BatchSize: cfg.IdempotencyCleanupBatchSize,
	})
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleanupWorker.Run(workersCtx)
	}()

	healthHandler := healthcheck.NewHandler(version.Current().Version)
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return deps.Ping(pingCtx)
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		workers.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		workers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-эндпоинты.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
