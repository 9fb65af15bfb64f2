package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.KafkaBrokers != "localhost:9092" {
		t.Errorf("unexpected brokers %q", cfg.KafkaBrokers)
	}
	if cfg.CommandsTopic != "billing.commands" {
		t.Errorf("unexpected commands topic %q", cfg.CommandsTopic)
	}
	if cfg.GroupID != "billing-service" {
		t.Errorf("unexpected group id %q", cfg.GroupID)
	}
	if cfg.EventStoreDriver != EventStoreDriverKafka {
		t.Errorf("unexpected event store driver %q", cfg.EventStoreDriver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must be valid, got %v", err)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("BILLING_COMMANDS_TOPIC", "billing.commands.v2")
	t.Setenv("BILLING_EVENTS_TOPIC_PREFIX", "staging")
	t.Setenv("BILLING_MAX_RETRIES", "5")
	t.Setenv("READ_MODEL_URL", "http://read-model:8010")
	t.Setenv("GATEWAY_TIMEOUT", "2s")
	t.Setenv("EVENT_STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://billing:billing@db:5432/events")
	t.Setenv("BILLING_METRICS_ADDR", ":9191")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	if cfg.KafkaBrokers != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("unexpected brokers %q", cfg.KafkaBrokers)
	}
	if cfg.CommandsTopic != "billing.commands.v2" {
		t.Errorf("unexpected commands topic %q", cfg.CommandsTopic)
	}
	if cfg.EventsTopicPrefix != "staging" {
		t.Errorf("unexpected events prefix %q", cfg.EventsTopicPrefix)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("unexpected max retries %d", cfg.MaxRetries)
	}
	if cfg.GatewayTimeout != 2*time.Second {
		t.Errorf("unexpected gateway timeout %s", cfg.GatewayTimeout)
	}
	if cfg.EventStoreDriver != EventStoreDriverPostgres {
		t.Errorf("unexpected driver %q", cfg.EventStoreDriver)
	}
	if cfg.MetricsAddr != ":9191" {
		t.Errorf("unexpected metrics addr %q", cfg.MetricsAddr)
	}
}

func TestConfigFromEnv_InvalidValues(t *testing.T) {
	t.Run("max retries", func(t *testing.T) {
		t.Setenv("BILLING_MAX_RETRIES", "many")
		if _, err := ConfigFromEnv(); err == nil {
			t.Error("expected error for non-numeric retries")
		}
	})

	t.Run("negative retries", func(t *testing.T) {
		t.Setenv("BILLING_MAX_RETRIES", "-1")
		if _, err := ConfigFromEnv(); err == nil {
			t.Error("expected error for negative retries")
		}
	})

	t.Run("gateway timeout", func(t *testing.T) {
		t.Setenv("GATEWAY_TIMEOUT", "soon")
		if _, err := ConfigFromEnv(); err == nil {
			t.Error("expected error for unparsable timeout")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid kafka", mutate: func(*Config) {}, ok: true},
		{name: "missing brokers", mutate: func(c *Config) { c.KafkaBrokers = "" }},
		{name: "missing commands topic", mutate: func(c *Config) { c.CommandsTopic = "" }},
		{name: "missing read-model url", mutate: func(c *Config) { c.ReadModelURL = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.EventStoreDriver = "cassandra" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.EventStoreDriver = EventStoreDriverPostgres }},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.EventStoreDriver = EventStoreDriverPostgres
			c.PostgresDSN = "postgres://billing@db/events"
		}, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBrokerList(t *testing.T) {
	cfg := Config{KafkaBrokers: " kafka-1:9092, kafka-2:9092 ,,kafka-3:9092"}
	brokers := cfg.BrokerList()
	if len(brokers) != 3 {
		t.Fatalf("expected 3 brokers, got %v", brokers)
	}
	if brokers[0] != "kafka-1:9092" || brokers[2] != "kafka-3:9092" {
		t.Errorf("unexpected brokers %v", brokers)
	}
}
