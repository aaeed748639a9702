package domain

import "time"

// OrderDetail — строка отчётной проекции "заказ + клиент + товар".
type OrderDetail struct {
	OrderID      int64
	CustomerName string
	ProductName  string
	Qty          int32
	PriceMinor   int64
	AmountMinor  int64
	Status       OrderStatus
	OrderDate    time.Time
}

// SalesReader — потребляемый read-only контракт отчётных проекций.
// Ядро не владеет проекциями, только читает их.
type SalesReader interface {
	// TotalSales возвращает сумму (цена × количество) по всем заказам товара.
	// Товар без заказов даёт ноль, а не ошибку.
	TotalSales(productID int64) (int64, error)
	// StockLevel классифицирует текущий остаток товара.
	StockLevel(productID int64) (StockLevel, error)
	// OrderDetails возвращает join заказов с именами клиента и товара.
	OrderDetails(limit int) ([]OrderDetail, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// AuditEvent фиксирует факт мутации сущности для трассировки истории.
type AuditEvent struct {
	ID         int64
	EntityType string
	EntityID   int64
	EventType  string
	Detail     string
	Occurred   time.Time
}

// AuditRepository хранит события аудита мутаций.
type AuditRepository interface {
	Append(event AuditEvent) error
	List(entityType string, entityID int64) ([]AuditEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	// Delete освобождает ключ: следующий запрос с тем же ключом выполняется заново.
	Delete(key string) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
