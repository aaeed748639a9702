package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/storage/memory"
	"github.com/vladislavdragonenkov/market/internal/storage/postgres"
)

// Dependencies содержит хранилища и вспомогательные зависимости приложения.
type Dependencies struct {
	Customers   domain.CustomerRepository
	Products    domain.ProductRepository
	Orders      domain.OrderRepository
	Sales       domain.SalesReader
	Outbox      domain.OutboxRepository
	Audit       domain.AuditRepository
	Idempotency domain.IdempotencyRepository
	Logger      *log.Entry

	// pg не nil только для postgres-бэкенда: используется для health check
	// и закрытия пула.
	pg *postgres.Store
}

// NewDependencies создаёт зависимости для выбранного бэкенда хранения.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		store := memory.NewStore()
		return &Dependencies{
			Customers:   memory.NewCustomerRepository(store),
			Products:    memory.NewProductRepository(store),
			Orders:      memory.NewOrderRepository(store),
			Sales:       memory.NewSalesReader(store),
			Outbox:      memory.NewOutboxRepository(),
			Audit:       memory.NewAuditRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.PoolConfig{
			MaxOpenConns: cfg.PostgresMaxOpenConns,
			MaxIdleConns: cfg.PostgresMaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("миграции базы данных применены")
		}
		return &Dependencies{
			Customers:   postgres.NewCustomerRepository(store),
			Products:    postgres.NewProductRepository(store),
			Orders:      postgres.NewOrderRepository(store),
			Sales:       postgres.NewSalesReader(store),
			Outbox:      postgres.NewOutboxRepository(store),
			Audit:       postgres.NewAuditRepository(store),
			Idempotency: postgres.NewIdempotencyRepository(store),
			Logger:      logger,
			pg:          store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Ping проверяет доступность хранилища. Для in-memory всегда успешен.
func (d *Dependencies) Ping(ctx context.Context) error {
	if d.pg == nil {
		return nil
	}
	return d.pg.Ping(ctx)
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.pg == nil {
		return nil
	}
	return d.pg.Close()
}
