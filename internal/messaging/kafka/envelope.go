package kafka

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// EventEnvelope — внешний конверт сообщения в топике entity events.
// Формат общий для outbox-воркера и инструмента переигрывания DLQ.
type EventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// DLQRecord — payload DLQ-сообщения: исходное событие плюс причина отказа
// публикации. Кладётся внутрь EventEnvelope в топике market.dlq.
type DLQRecord struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

// NewDLQRecord формирует DLQ-запись из неопубликованного outbox-сообщения.
func NewDLQRecord(event domain.OutboxMessage, publishErr error) DLQRecord {
	record := DLQRecord{
		OutboxID:       event.ID,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		EventType:      event.EventType,
		Payload:        json.RawMessage(event.Payload),
		DLQPublishedAt: time.Now().UTC(),
	}
	if publishErr != nil {
		record.PublishError = publishErr.Error()
	}
	return record
}

// OriginalMessage восстанавливает исходное outbox-сообщение из DLQ-записи.
func (r DLQRecord) OriginalMessage() (domain.OutboxMessage, error) {
	if strings.TrimSpace(r.EventType) == "" {
		return domain.OutboxMessage{}, fmt.Errorf("dlq record has no event type")
	}
	if len(r.Payload) == 0 {
		return domain.OutboxMessage{}, fmt.Errorf("dlq record has no original payload")
	}

	return domain.OutboxMessage{
		ID:            r.OutboxID,
		AggregateType: r.AggregateType,
		AggregateID:   r.AggregateID,
		EventType:     r.EventType,
		Payload:       []byte(r.Payload),
	}, nil
}
