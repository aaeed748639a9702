package kafka

// EventType определяет тип доменного события
type EventType string

const (
	// Customer события
	EventTypeCustomerRegistered EventType = "customer.registered"
	EventTypeCustomerDeleted    EventType = "customer.deleted"

	// Product события
	EventTypeProductCreated      EventType = "product.created"
	EventTypeProductPriceChanged EventType = "product.price_changed"

	// Order события
	EventTypeOrderPlaced EventType = "order.placed"
)

// Topics для Kafka
const (
	TopicEntityEvents    = "market.entity.events"
	TopicDeadLetterQueue = "market.dlq" // Dead Letter Queue для failed messages
)

// IsKnownEventType проверяет, что тип события входит в словарь маркетплейса.
// Outbox-воркер не публикует в entity-топик события вне этого словаря.
func IsKnownEventType(eventType string) bool {
	switch EventType(eventType) {
	case EventTypeCustomerRegistered, EventTypeCustomerDeleted,
		EventTypeProductCreated, EventTypeProductPriceChanged,
		EventTypeOrderPlaced:
		return true
	default:
		return false
	}
}
