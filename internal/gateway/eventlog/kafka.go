package eventlog

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/domain"
	"github.com/vladislavdragonenkov/billing/internal/messaging/kafka"
)

// KafkaEventLog публикует доменные события в Kafka topic потока.
// Producer работает синхронно с acks=all, поэтому возврат из Publish означает,
// что событие долговременно записано.
type KafkaEventLog struct {
	producer *kafka.Producer
	topicFor func(stream string) string
	logger   *log.Entry
}

// NewKafkaEventLog создаёт Kafka-адаптер event log. topicPrefix добавляется
// перед именем topic'а потока; пустой префикс даёт "<stream>.events".
func NewKafkaEventLog(producer *kafka.Producer, topicPrefix string) *KafkaEventLog {
	return &KafkaEventLog{
		producer: producer,
		topicFor: func(stream string) string {
			if topicPrefix == "" {
				return stream + ".events"
			}
			return topicPrefix + "." + stream + ".events"
		},
		logger: log.WithField("component", "eventlog-kafka"),
	}
}

// Publish отправляет событие в topic потока, ключ — entity_id
// (сохраняет порядок событий одной сущности внутри partition).
func (l *KafkaEventLog) Publish(ctx context.Context, stream string, event domain.Event) error {
	if l == nil || l.producer == nil {
		return domain.NewEventStoreError(fmt.Errorf("kafka event log is not initialized"))
	}

	topic := l.topicFor(stream)
	if err := l.producer.Publish(topic, event.Payload.EntityID, event); err != nil {
		return domain.NewEventStoreError(err)
	}

	l.logger.WithFields(log.Fields{
		"topic":      topic,
		"event_type": event.Type,
		"entity_id":  event.Payload.EntityID,
	}).Debug("event appended")
	return nil
}

var _ domain.EventLog = (*KafkaEventLog)(nil)
