package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/domain"
	"github.com/vladislavdragonenkov/billing/internal/gateway/eventlog"
	"github.com/vladislavdragonenkov/billing/internal/gateway/readmodel"
	healthcheck "github.com/vladislavdragonenkov/billing/internal/health"
	"github.com/vladislavdragonenkov/billing/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/billing/internal/metrics"
	"github.com/vladislavdragonenkov/billing/internal/service/billing"
	"github.com/vladislavdragonenkov/billing/internal/version"
)

// Run собирает зависимости и запускает потребление команд до отмены ctx.
// Остановка best-effort: consumer group закрывается, команды в полёте
// не дожидаются отдельного drain'а.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(cfg.BrokerList())
	if err != nil {
		return err
	}
	defer closeProducer(producer, logger)

	readModel := readmodel.NewClient(cfg.ReadModelURL, cfg.GatewayTimeout)

	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("read-model", healthcheck.NewPingChecker("read-model", cfg.GatewayTimeout, readModel.Ping))

	eventLog, closeEventLog, err := buildEventLog(ctx, cfg, producer, healthHandler)
	if err != nil {
		return err
	}
	defer closeEventLog()

	billingMetrics := metrics.NewBillingMetrics()
	handler := billing.NewHandlerWithMetrics(readModel, eventLog, logger.WithField("layer", "handler"), billingMetrics)
	dispatcher := billing.NewDispatcher(handler, producer, logger.WithField("layer", "dispatcher"))

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:      cfg.BrokerList(),
		GroupID:      cfg.GroupID,
		Topics:       []string{cfg.CommandsTopic},
		Handler:      dispatcher.Handle,
		DLQ:          producer,
		DLQTopic:     cfg.DLQTopic,
		MaxRetries:   cfg.MaxRetries,
		OnDeadLetter: billingMetrics.RecordMessageDeadLettered,
	})
	if err != nil {
		return err
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	logger.WithFields(log.Fields{
		"commands_topic": cfg.CommandsTopic,
		"group_id":       cfg.GroupID,
		"event_store":    cfg.EventStoreDriver,
	}).Info("billing service started")

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем consumer")

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("consumer stopped with error")
	}

	return ctx.Err()
}

// buildEventLog выбирает адаптер event store по конфигурации и регистрирует
// его health check. Возвращает также функцию освобождения ресурсов.
func buildEventLog(ctx context.Context, cfg Config, producer *kafka.Producer, healthHandler *healthcheck.Handler) (domain.EventLog, func(), error) {
	switch cfg.EventStoreDriver {
	case EventStoreDriverPostgres:
		pg, err := eventlog.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		healthHandler.RegisterChecker("event-store", healthcheck.NewPingChecker("event-store", cfg.GatewayTimeout, pg.Ping))
		return pg, func() {
			if err := pg.Close(); err != nil {
				log.WithError(err).Warn("failed to close event store connection")
			}
		}, nil

	default:
		// Kafka event log живёт на общем producer'е, закрывать нечего.
		return eventlog.NewKafkaEventLog(producer, cfg.EventsTopicPrefix), func() {}, nil
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}

// closeProducer закрывает Kafka producer, если он создан.
func closeProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
