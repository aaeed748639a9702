package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func newMockedProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()

	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := &Producer{
		sync:   mockProducer,
		logger: log.WithField("component", "kafka-producer-test"),
	}
	return producer, mockProducer
}

func TestProducer_Send(t *testing.T) {
	producer, mockProducer := newMockedProducer(t)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		if string(value) != `{"order_id":1}` {
			t.Errorf("unexpected message value: %s", value)
		}
		return nil
	})

	if err := producer.Send(TopicEntityEvents, "1", []byte(`{"order_id":1}`)); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Send_BrokerError(t *testing.T) {
	producer, mockProducer := newMockedProducer(t)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	if err := producer.Send(TopicEntityEvents, "1", []byte(`{}`)); err == nil {
		t.Fatal("expected error from mock producer")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
