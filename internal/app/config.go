package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StorageDriver определяет бэкенд хранения.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver        StorageDriver
	PostgresDSN          string
	PostgresAutoMigrate  bool
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int

	KafkaBrokers string
	OutboxTopic  string
	DLQTopic     string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает конфигурацию по умолчанию: in-memory хранилище,
// без Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		OutboxTopic:         "market.entity.events",
		DLQTopic:            "market.dlq",

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,

		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfigFromEnv строит конфигурацию из переменных окружения поверх
// значений по умолчанию. Файл .env подхватывается в main через godotenv.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	var err error

	if v := os.Getenv("MARKET_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MARKET_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	if v := os.Getenv("MARKET_STORAGE_DRIVER"); v != "" {
		driver := StorageDriver(v)
		if driver != StorageDriverMemory && driver != StorageDriverPostgres {
			return Config{}, fmt.Errorf("unknown MARKET_STORAGE_DRIVER %q", v)
		}
		cfg.StorageDriver = driver
	}
	if v := os.Getenv("MARKET_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
		// DSN без явного драйвера означает postgres.
		if os.Getenv("MARKET_STORAGE_DRIVER") == "" {
			cfg.StorageDriver = StorageDriverPostgres
		}
	}
	if v := os.Getenv("MARKET_POSTGRES_AUTO_MIGRATE"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MARKET_POSTGRES_AUTO_MIGRATE %q: %w", v, err)
		}
		cfg.PostgresAutoMigrate = parsed
	}

	if cfg.StorageDriver == StorageDriverPostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("MARKET_POSTGRES_DSN is required for postgres storage")
	}
	if cfg.PostgresMaxOpenConns, err = envInt("MARKET_POSTGRES_MAX_OPEN_CONNS", cfg.PostgresMaxOpenConns); err != nil {
		return Config{}, err
	}
	if cfg.PostgresMaxIdleConns, err = envInt("MARKET_POSTGRES_MAX_IDLE_CONNS", cfg.PostgresMaxIdleConns); err != nil {
		return Config{}, err
	}

	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	if v := os.Getenv("MARKET_OUTBOX_TOPIC"); v != "" {
		cfg.OutboxTopic = v
	}
	if v := os.Getenv("MARKET_DLQ_TOPIC"); v != "" {
		cfg.DLQTopic = v
	}

	if cfg.OutboxPollInterval, err = envDuration("MARKET_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = envInt("MARKET_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.OutboxMaxAttempts, err = envInt("MARKET_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OutboxRetryDelay, err = envDuration("MARKET_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyCleanupInterval, err = envDuration("MARKET_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyCleanupBatchSize, err = envInt("MARKET_IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", name, raw)
	}
	return parsed, nil
}

func envInt(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", name, raw)
	}
	return parsed, nil
}
