package app

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/billing/internal/gateway/eventlog"
	healthcheck "github.com/vladislavdragonenkov/billing/internal/health"
)

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventStoreDriver = "cassandra"

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected validation error before any connection attempt")
	}
}

func TestBuildEventLog_KafkaDefault(t *testing.T) {
	cfg := DefaultConfig()
	healthHandler := healthcheck.NewHandler("test")

	log, closeFn, err := buildEventLog(context.Background(), cfg, nil, healthHandler)
	if err != nil {
		t.Fatalf("expected kafka event log, got %v", err)
	}
	defer closeFn()

	if _, ok := log.(*eventlog.KafkaEventLog); !ok {
		t.Errorf("unexpected event log type %T", log)
	}
}
