package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics содержит метрики обработки команд billing-сервиса.
type BillingMetrics struct {
	// Счётчики исходов команд
	commandsStarted  prometheus.Counter
	commandsAccepted *prometheus.CounterVec
	commandsRejected *prometheus.CounterVec

	// Гистограммы времени выполнения
	commandDuration    *prometheus.HistogramVec
	validationDuration prometheus.Histogram

	// Счётчик опубликованных доменных событий
	eventsPublished *prometheus.CounterVec

	// Счётчик сообщений, перенесённых в DLQ
	dlqMessages prometheus.Counter

	// Gauge для команд в обработке
	inFlightCommands prometheus.Gauge
}

// NewBillingMetrics создаёт и регистрирует метрики в default registerer.
func NewBillingMetrics() *BillingMetrics {
	return newBillingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newBillingMetricsWithRegisterer(registerer prometheus.Registerer) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &BillingMetrics{
		commandsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "billing_commands_started_total",
			Help: "Total number of billing commands received",
		}),
		commandsAccepted: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "billing_commands_accepted_total",
			Help: "Total number of billing commands accepted",
		}, []string{"command"}),
		commandsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "billing_commands_rejected_total",
			Help: "Total number of billing commands rejected",
		}, []string{"command", "reason"}),
		commandDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "billing_command_duration_seconds",
			Help:    "Duration of billing command handling in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		validationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "billing_amount_validation_duration_seconds",
			Help:    "Duration of amount validation round trips in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "billing_events_published_total",
			Help: "Total number of domain events published to the event log",
		}, []string{"event_type"}),
		dlqMessages: registerCounter(registerer, prometheus.CounterOpts{
			Name: "billing_dlq_messages_total",
			Help: "Total number of command messages moved to the dead letter queue",
		}),
		inFlightCommands: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "billing_commands_in_flight",
			Help: "Number of billing commands currently being handled",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCommandStarted увеличивает счётчик полученных команд и in-flight gauge.
func (m *BillingMetrics) RecordCommandStarted() {
	m.commandsStarted.Inc()
	m.inFlightCommands.Inc()
}

// RecordCommandFinished уменьшает in-flight gauge.
func (m *BillingMetrics) RecordCommandFinished() {
	m.inFlightCommands.Dec()
}

// RecordCommandAccepted увеличивает счётчик принятых команд.
func (m *BillingMetrics) RecordCommandAccepted(command string) {
	m.commandsAccepted.WithLabelValues(command).Inc()
}

// RecordCommandRejected увеличивает счётчик отклонённых команд по причине.
func (m *BillingMetrics) RecordCommandRejected(command, reason string) {
	m.commandsRejected.WithLabelValues(command, reason).Inc()
}

// ObserveCommandDuration записывает время обработки команды.
func (m *BillingMetrics) ObserveCommandDuration(command string, duration time.Duration) {
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// ObserveValidationDuration записывает время полного цикла проверки суммы.
func (m *BillingMetrics) ObserveValidationDuration(duration time.Duration) {
	m.validationDuration.Observe(duration.Seconds())
}

// RecordEventPublished увеличивает счётчик опубликованных событий.
func (m *BillingMetrics) RecordEventPublished(eventType string) {
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordMessageDeadLettered увеличивает счётчик сообщений, ушедших в DLQ.
func (m *BillingMetrics) RecordMessageDeadLettered() {
	m.dlqMessages.Inc()
}
