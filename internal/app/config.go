package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/billing/internal/messaging/kafka"
)

// Драйверы event store.
const (
	EventStoreDriverKafka    = "kafka"
	EventStoreDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	// KafkaBrokers — список брокеров через запятую.
	KafkaBrokers string
	// CommandsTopic — topic входящих команд.
	CommandsTopic string
	// EventsTopicPrefix добавляется перед "<stream>.events"; пустой — без префикса.
	EventsTopicPrefix string
	// DLQTopic — topic для сообщений, исчерпавших retry.
	DLQTopic string
	// GroupID — consumer group сервиса.
	GroupID string
	// MaxRetries — попытки обработки сообщения до DLQ.
	MaxRetries int

	// ReadModelURL — базовый URL read-model сервиса.
	ReadModelURL string
	// GatewayTimeout — таймаут каждого вызова внешнего шлюза.
	GatewayTimeout time.Duration

	// EventStoreDriver — kafka или postgres.
	EventStoreDriver string
	// PostgresDSN — DSN event store при драйвере postgres.
	PostgresDSN string

	// MetricsAddr — адрес HTTP-сервера метрик и health checks.
	MetricsAddr string
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		KafkaBrokers:     "localhost:9092",
		CommandsTopic:    kafka.TopicBillingCommands,
		DLQTopic:         kafka.TopicDeadLetterQueue,
		GroupID:          kafka.GroupID,
		MaxRetries:       3,
		ReadModelURL:     "http://localhost:8010",
		GatewayTimeout:   5 * time.Second,
		EventStoreDriver: EventStoreDriverKafka,
		MetricsAddr:      ":9090",
	}
}

// ConfigFromEnv собирает конфигурацию: значения по умолчанию плюс
// переопределения из переменных окружения.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("BILLING_COMMANDS_TOPIC"); v != "" {
		cfg.CommandsTopic = v
	}
	if v := os.Getenv("BILLING_EVENTS_TOPIC_PREFIX"); v != "" {
		cfg.EventsTopicPrefix = v
	}
	if v := os.Getenv("BILLING_DLQ_TOPIC"); v != "" {
		cfg.DLQTopic = v
	}
	if v := os.Getenv("BILLING_GROUP_ID"); v != "" {
		cfg.GroupID = v
	}
	if v := os.Getenv("BILLING_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid BILLING_MAX_RETRIES %q", v)
		}
		cfg.MaxRetries = n
	}
	if v := os.Getenv("READ_MODEL_URL"); v != "" {
		cfg.ReadModelURL = v
	}
	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid GATEWAY_TIMEOUT %q", v)
		}
		cfg.GatewayTimeout = d
	}
	if v := os.Getenv("EVENT_STORE_DRIVER"); v != "" {
		cfg.EventStoreDriver = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("BILLING_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.CommandsTopic == "" {
		return fmt.Errorf("commands topic is required")
	}
	if c.ReadModelURL == "" {
		return fmt.Errorf("read-model url is required")
	}
	switch c.EventStoreDriver {
	case EventStoreDriverKafka:
	case EventStoreDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for postgres event store driver")
		}
	default:
		return fmt.Errorf("unknown event store driver %q", c.EventStoreDriver)
	}
	return nil
}

// BrokerList возвращает брокеры отдельными адресами.
func (c Config) BrokerList() []string {
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
