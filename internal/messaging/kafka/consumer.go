package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение из Kafka.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// ConsumerConfig описывает параметры consumer group.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	Handler MessageHandler
	// DLQ — producer для отправки сообщений, исчерпавших retry. nil отключает DLQ.
	DLQ      *Producer
	DLQTopic string
	// MaxRetries — число повторных попыток до отправки в DLQ.
	MaxRetries int
	// OnDeadLetter вызывается после успешной отправки сообщения в DLQ
	// (например, для метрик). nil допустим.
	OnDeadLetter func()
}

// Consumer читает команды из Kafka consumer group и передаёт их handler'у.
// Между независимыми сообщениями порядок обработки не гарантируется; внутри
// одного сообщения handler работает строго последовательно.
type Consumer struct {
	group        sarama.ConsumerGroup
	topics       []string
	handler      MessageHandler
	logger       *log.Entry
	wg           sync.WaitGroup
	dlq          *Producer
	dlqTopic     string
	maxRetries   int
	onDeadLetter func()
}

// NewConsumer создаёт consumer group по конфигурации.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	dlqTopic := cfg.DLQTopic
	if dlqTopic == "" {
		dlqTopic = TopicDeadLetterQueue
	}

	return &Consumer{
		group:      group,
		topics:     cfg.Topics,
		handler:    cfg.Handler,
		logger:     log.WithField("component", "kafka-consumer"),
		dlq:          cfg.DLQ,
		dlqTopic:     dlqTopic,
		maxRetries:   maxRetries,
		onDeadLetter: cfg.OnDeadLetter,
	}, nil
}

// Start запускает циклы потребления и чтения ошибок. Возвращается сразу;
// остановка — через отмену ctx и Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume завершается при rebalance, поэтому вызывается в цикле.
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает consumer group и дожидается завершения горутин.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup вызывается при завершении consumer session.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim обрабатывает сообщения одной partition.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			c.logger.WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Debug("received message")

			if err := c.handleWithRetry(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(log.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("message processing failed after all retries")
				// Не маркируем сообщение: оно либо уже в DLQ, либо будет перечитано.
				continue
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handleWithRetry обрабатывает сообщение, а после исчерпания retry переносит его в DLQ.
func (c *Consumer) handleWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	retryCount := c.retryCount(message)

	err := c.handler(ctx, message)
	if err == nil {
		return nil
	}

	if retryCount < c.maxRetries {
		c.logger.WithFields(log.Fields{
			"topic":       message.Topic,
			"retry_count": retryCount,
			"max_retries": c.maxRetries,
		}).Warn("message processing failed, will retry")
		return err
	}

	if c.dlq != nil {
		if dlqErr := c.sendToDLQ(message, err); dlqErr != nil {
			c.logger.WithError(dlqErr).Error("failed to send message to DLQ")
			return fmt.Errorf("send to DLQ: %w", dlqErr)
		}
		if c.onDeadLetter != nil {
			c.onDeadLetter()
		}
		c.logger.WithFields(log.Fields{
			"topic":       message.Topic,
			"retry_count": retryCount,
		}).Info("message sent to DLQ after max retries")
		// Считаем обработанным: сообщение сохранено в DLQ для reprocess.
		return nil
	}

	return err
}

// sendToDLQ переносит необработанное сообщение в DLQ topic, сохраняя
// исходные topic/key/value и причину отказа в headers.
func (c *Consumer) sendToDLQ(message *sarama.ConsumerMessage, cause error) error {
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(c.retryCount(message) + 1))},
		{Key: []byte(HeaderOriginalTopic), Value: []byte(message.Topic)},
		{Key: []byte(HeaderErrorMessage), Value: []byte(cause.Error())},
		{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	}
	return c.dlq.PublishRaw(c.dlqTopic, string(message.Key), message.Value, headers)
}

// retryCount извлекает текущий retry count из headers сообщения.
func (c *Consumer) retryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if header == nil {
			continue
		}
		if string(header.Key) == HeaderRetryCount {
			if count, err := strconv.Atoi(string(header.Value)); err == nil {
				return count
			}
		}
	}
	return 0
}
