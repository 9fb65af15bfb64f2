package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func newMockProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()
	mockProducer := mocks.NewSyncProducer(t, nil)
	return NewProducerFromSyncProducer(mockProducer), mockProducer
}

func TestProducer_Publish(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var decoded map[string]interface{}
		return json.Unmarshal(value, &decoded)
	})

	response := NewResultResponse("corr-1", []string{"billing-1"})
	if err := producer.Publish("replies", "corr-1", response); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Publish_Error(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	if err := producer.Publish("replies", "corr-1", NewErrorResponse("corr-1", "boom")); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Publish_UnmarshalableValue(t *testing.T) {
	producer := &Producer{logger: log.WithField("component", "test")}

	if err := producer.Publish("replies", "corr-1", func() {}); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestProducer_PublishRaw_KeepsHeaders(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != HeaderOriginalTopic {
			t.Errorf("expected original topic header, got %v", msg.Headers)
		}
		return nil
	})

	headers := []sarama.RecordHeader{{Key: []byte(HeaderOriginalTopic), Value: []byte(TopicBillingCommands)}}
	if err := producer.PublishRaw(TopicDeadLetterQueue, "key", []byte(`{}`), headers); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
