// dlq-reprocess — операторский инструмент перепроигрывания сообщений из
// billing.dlq обратно в исходные topics. По умолчанию работает в dry-run
// режиме и только печатает, что было бы отправлено; --execute включает
// реальную отправку.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

// replayMessage — одно сообщение DLQ, готовое к перепроигрыванию.
type replayMessage struct {
	topic  string
	key    string
	value  []byte
	reason string
}

type partitionSource interface {
	Partitions(topic string) ([]int32, error)
	ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg := parseFlags()

	consumer, err := sarama.NewConsumer(cfg.brokers, sarama.NewConfig())
	if err != nil {
		log.WithError(err).Fatal("не удалось создать consumer")
	}
	defer consumer.Close()

	var producer replayProducer
	if cfg.execute {
		producerCfg := sarama.NewConfig()
		producerCfg.Producer.RequiredAcks = sarama.WaitForAll
		producerCfg.Producer.Return.Successes = true
		syncProducer, err := sarama.NewSyncProducer(cfg.brokers, producerCfg)
		if err != nil {
			log.WithError(err).Fatal("не удалось создать producer")
		}
		producer = syncProducer
		defer producer.Close()
	}

	replayed, err := run(cfg, consumer, producer)
	if err != nil {
		log.WithError(err).Fatal("reprocess завершился с ошибкой")
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{"mode": mode, "messages": replayed}).Info("reprocess завершён")
}

func parseFlags() config {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "список Kafka брокеров через запятую")
		sourceTopic = flag.String("source", kafka.TopicDeadLetterQueue, "DLQ topic для чтения")
		targetTopic = flag.String("target", "", "topic назначения; пустой — исходный topic из header")
		limit       = flag.Int("limit", defaultReplayLimit, "максимум сообщений за запуск")
		execute     = flag.Bool("execute", false, "реально отправлять сообщения, а не dry-run")
		idle        = flag.Duration("idle-timeout", defaultIdleTimeout, "остановка после паузы без новых сообщений")
	)
	flag.Parse()

	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "limit должен быть > 0")
		os.Exit(2)
	}

	return config{
		brokers:     strings.Split(*brokers, ","),
		sourceTopic: *sourceTopic,
		targetTopic: *targetTopic,
		limit:       *limit,
		execute:     *execute,
		idleTimeout: *idle,
	}
}

// run читает DLQ и перепроигрывает собранные сообщения.
func run(cfg config, source partitionSource, producer replayProducer) (int, error) {
	messages, err := collect(cfg, source)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, msg := range messages {
		logger := log.WithFields(log.Fields{
			"target": msg.topic,
			"key":    msg.key,
			"reason": msg.reason,
		})

		if !cfg.execute {
			logger.Info("dry-run: сообщение было бы отправлено")
			replayed++
			continue
		}

		_, _, err := producer.SendMessage(&sarama.ProducerMessage{
			Topic: msg.topic,
			Key:   sarama.StringEncoder(msg.key),
			Value: sarama.ByteEncoder(msg.value),
		})
		if err != nil {
			return replayed, fmt.Errorf("send message to %s: %w", msg.topic, err)
		}
		logger.Info("сообщение перепроиграно")
		replayed++
	}

	return replayed, nil
}

// collect вычитывает DLQ с начала каждой partition до limit или idle-таймаута.
func collect(cfg config, source partitionSource) ([]replayMessage, error) {
	partitions, err := source.Partitions(cfg.sourceTopic)
	if err != nil {
		return nil, fmt.Errorf("list partitions of %s: %w", cfg.sourceTopic, err)
	}

	var messages []replayMessage
	for _, partition := range partitions {
		if len(messages) >= cfg.limit {
			break
		}

		pc, err := source.ConsumePartition(cfg.sourceTopic, partition, sarama.OffsetOldest)
		if err != nil {
			return nil, fmt.Errorf("consume partition %d: %w", partition, err)
		}

		messages = drainPartition(cfg, pc, messages)
		_ = pc.Close()
	}

	return messages, nil
}

func drainPartition(cfg config, pc sarama.PartitionConsumer, messages []replayMessage) []replayMessage {
	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	for len(messages) < cfg.limit {
		select {
		case msg := <-pc.Messages():
			if msg == nil {
				return messages
			}
			messages = append(messages, toReplay(cfg, msg))
			idle.Reset(cfg.idleTimeout)
		case err := <-pc.Errors():
			if err != nil {
				log.WithError(err).Warn("ошибка чтения partition")
			}
		case <-idle.C:
			return messages
		}
	}
	return messages
}

// toReplay восстанавливает исходное сообщение из DLQ-записи: тело хранится
// как есть, исходный topic и причина отказа — в headers.
func toReplay(cfg config, msg *sarama.ConsumerMessage) replayMessage {
	replay := replayMessage{
		topic: cfg.targetTopic,
		key:   string(msg.Key),
		value: msg.Value,
	}

	for _, header := range msg.Headers {
		if header == nil {
			continue
		}
		switch string(header.Key) {
		case kafka.HeaderOriginalTopic:
			if replay.topic == "" {
				replay.topic = string(header.Value)
			}
		case kafka.HeaderErrorMessage:
			replay.reason = string(header.Value)
		}
	}

	if replay.topic == "" {
		replay.topic = kafka.TopicBillingCommands
	}
	return replay
}
