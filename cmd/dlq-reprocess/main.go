// dlq-reprocess возвращает мёртвые события маркетплейса из market.dlq
// обратно в entity-топик после устранения причины отказа.
// По умолчанию работает в режиме dry-run: только перечисляет кандидатов.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

type config struct {
	brokers     []string
	dlqTopic    string
	targetTopic string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

// offsetReader — подмножество sarama.Client для обхода партиций DLQ.
type offsetReader interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, at int64) (int64, error)
}

// messageStream — подмножество sarama.PartitionConsumer.
type messageStream interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type streamSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (messageStream, error)
}

// replayer перечитывает DLQ и переигрывает восстановленные события
// через обычный outbox-паблишер.
type replayer struct {
	offsets offsetReader
	source  streamSource
	sink    domain.OutboxPublisher // nil в режиме dry-run
	limit   int
	idle    time.Duration
	logger  *log.Entry
}

type replaySummary struct {
	scanned  int
	replayed int
	skipped  int
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&cfg.dlqTopic, "dlq-topic", kafka.TopicDeadLetterQueue, "DLQ topic to scan")
	flag.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicEntityEvents, "topic to replay events into")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of DLQ messages to scan")
	flag.BoolVar(&cfg.execute, "execute", false, "actually republish; default is dry-run")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop scanning a partition after this idle period")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}

	cfg.brokers = parseBrokers(brokersRaw)
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.dlqTopic) == "" || strings.TrimSpace(cfg.targetTopic) == "" {
		return config{}, fmt.Errorf("dlq-topic and target-topic are required")
	}
	if cfg.limit <= 0 {
		return config{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.idleTimeout <= 0 {
		return config{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	logger := log.WithField("component", "dlq-reprocess")
	logger.WithFields(log.Fields{
		"dlq_topic":    cfg.dlqTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
	}).Info("starting dlq replay")

	client, err := sarama.NewClient(cfg.brokers, sarama.NewConfig())
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	defer func() { _ = client.Close() }()

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	var sink domain.OutboxPublisher
	if cfg.execute {
		producer, err := kafka.NewProducer(cfg.brokers)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() { _ = producer.Close() }()
		sink = kafka.NewOutboxPublisher(producer, cfg.targetTopic)
	}

	r := &replayer{
		offsets: client,
		source:  consumerSource{consumer},
		sink:    sink,
		limit:   cfg.limit,
		idle:    cfg.idleTimeout,
		logger:  logger,
	}

	summary, err := r.run(ctx, cfg.dlqTopic)
	if err != nil {
		return err
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	logger.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  summary.scanned,
		"replayed": summary.replayed,
		"skipped":  summary.skipped,
	}).Info("dlq replay finished")

	return nil
}

// consumerSource сужает sarama.Consumer до streamSource.
type consumerSource struct {
	consumer sarama.Consumer
}

func (s consumerSource) ConsumePartition(topic string, partition int32, offset int64) (messageStream, error) {
	return s.consumer.ConsumePartition(topic, partition, offset)
}

func (r *replayer) run(ctx context.Context, topic string) (replaySummary, error) {
	var total replaySummary

	partitions, err := r.offsets.Partitions(topic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", topic, err)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", topic).Warn("dlq topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		budget := r.limit - total.scanned
		if budget <= 0 {
			break
		}

		summary, err := r.drainPartition(ctx, topic, partition, budget)
		total.scanned += summary.scanned
		total.replayed += summary.replayed
		total.skipped += summary.skipped
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (r *replayer) drainPartition(ctx context.Context, topic string, partition int32, budget int) (replaySummary, error) {
	var summary replaySummary

	oldest, err := r.offsets.GetOffset(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return summary, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.offsets.GetOffset(topic, partition, sarama.OffsetNewest)
	if err != nil {
		return summary, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return summary, nil
	}

	stream, err := r.source.ConsumePartition(topic, partition, oldest)
	if err != nil {
		return summary, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = stream.Close() }()

	idle := time.NewTimer(r.idle)
	defer idle.Stop()

	for summary.scanned < budget {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case err := <-stream.Errors():
			if err != nil {
				return summary, fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-stream.Messages():
			if !ok || msg == nil {
				return summary, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idle)

			// Не выходим за верхнюю границу, зафиксированную на старте.
			if msg.Offset >= newest {
				return summary, nil
			}
			summary.scanned++

			event, err := restoreEvent(msg.Value)
			if err != nil {
				summary.skipped++
				r.logger.WithError(err).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip dlq message")
			} else if r.sink == nil {
				summary.replayed++
				r.logger.WithFields(log.Fields{
					"partition":  msg.Partition,
					"offset":     msg.Offset,
					"event_type": event.EventType,
					"aggregate":  event.AggregateID,
				}).Info("dlq replay candidate")
			} else if err := r.sink.Publish(event); err != nil {
				return summary, fmt.Errorf("republish event %s: %w", event.ID, err)
			} else {
				summary.replayed++
			}

			if msg.Offset+1 >= newest {
				return summary, nil
			}
		case <-idle.C:
			return summary, nil
		}
	}

	return summary, nil
}

// restoreEvent восстанавливает исходное outbox-событие из DLQ-сообщения.
// DLQ-сообщение — это EventEnvelope, payload которого содержит DLQRecord
// с оригинальным событием.
func restoreEvent(value []byte) (domain.OutboxMessage, error) {
	var envelope kafka.EventEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("message is not an event envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return domain.OutboxMessage{}, fmt.Errorf("envelope has no payload")
	}

	var record kafka.DLQRecord
	if err := json.Unmarshal(envelope.Payload, &record); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("decode dlq record: %w", err)
	}

	event, err := record.OriginalMessage()
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	if event.ID == "" {
		event.ID = envelope.ID
	}
	return event, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
