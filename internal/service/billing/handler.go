package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/domain"
	"github.com/vladislavdragonenkov/billing/internal/metrics"
)

// CreateRequest — входные данные одного создаваемого счёта.
// Amount — указатель, чтобы отличать отсутствующее поле от нулевой суммы.
type CreateRequest struct {
	OrderID string   `json:"order_id"`
	Amount  *float64 `json:"amount"`
}

// UpdateRequest — замена order_id/amount существующего счёта.
type UpdateRequest struct {
	EntityID string   `json:"entity_id"`
	OrderID  string   `json:"order_id"`
	Amount   *float64 `json:"amount"`
}

// DeleteRequest — удаление счёта по идентификатору.
type DeleteRequest struct {
	EntityID string `json:"entity_id"`
}

// Handler принимает команды записи по счетам: валидирует их против read-model
// и публикует доменные события в event store. Handler без состояния — вся
// долговременная информация живёт у внешних коллабораторов, поэтому экземпляр
// безопасно разделяется между параллельными командами.
type Handler struct {
	readModel domain.ReadModelGateway
	events    domain.EventLog
	logger    *log.Entry
	metrics   *metrics.BillingMetrics
}

// NewHandler создаёт обработчик команд с внедрёнными шлюзами.
func NewHandler(readModel domain.ReadModelGateway, events domain.EventLog, logger *log.Entry) *Handler {
	return NewHandlerWithMetrics(readModel, events, logger, metrics.NewBillingMetrics())
}

// NewHandlerWithMetrics позволяет передать метрики явно; nil отключает их (для тестов).
func NewHandlerWithMetrics(readModel domain.ReadModelGateway, events domain.EventLog, logger *log.Entry, m *metrics.BillingMetrics) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "billing-handler")
	}
	return &Handler{
		readModel: readModel,
		events:    events,
		logger:    logger,
		metrics:   m,
	}
}

// CreateBillings обрабатывает batch create. Каждый элемент проверяется и
// публикуется независимо, строго по порядку.
//
// Batch НЕ транзакционен: при отказе элемента N команда завершается ошибкой
// немедленно, события уже принятых элементов остаются опубликованными, отката
// нет. Это осознанно сохранённое поведение исходного протокола; потребители
// обязаны быть готовы к частичному эффекту batch-команды.
func (h *Handler) CreateBillings(ctx context.Context, reqs []CreateRequest) ([]string, error) {
	done := h.observeCommand(CommandCreateBillings)

	if len(reqs) == 0 {
		return nil, done(domain.ErrEmptyBatch)
	}

	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if req.OrderID == "" || req.Amount == nil {
			return nil, done(domain.ErrMissingOrderParams)
		}

		candidate := domain.Billing{
			OrderID: req.OrderID,
			Amount:  int64(*req.Amount),
		}
		if err := h.checkAmount(ctx, candidate); err != nil {
			return nil, done(err)
		}

		created := domain.NewBilling(candidate.OrderID, candidate.Amount)
		if err := h.publish(ctx, domain.EventTypeEntityCreated, created); err != nil {
			return nil, done(err)
		}

		ids = append(ids, created.EntityID)
	}

	h.logger.WithField("count", len(ids)).Info("billings created")
	return ids, done(nil)
}

// UpdateBilling перечитывает текущее состояние счёта из read-model, накладывает
// новые order_id/amount поверх него (entity_id сохраняется), заново проверяет
// сумму и публикует entity_updated.
func (h *Handler) UpdateBilling(ctx context.Context, req UpdateRequest) error {
	done := h.observeCommand(CommandUpdateBilling)

	if req.EntityID == "" {
		return done(domain.ErrMissingEntityID)
	}

	current, err := h.fetchBilling(ctx, req.EntityID)
	if err != nil {
		return done(err)
	}

	if req.OrderID == "" || req.Amount == nil {
		return done(domain.ErrMissingOrderParams)
	}

	updated := domain.Billing{
		EntityID: current.EntityID,
		OrderID:  req.OrderID,
		Amount:   int64(*req.Amount),
	}
	if err := h.checkAmount(ctx, updated); err != nil {
		return done(err)
	}

	if err := h.publish(ctx, domain.EventTypeEntityUpdated, updated); err != nil {
		return done(err)
	}

	h.logger.WithField("entity_id", updated.EntityID).Info("billing updated")
	return done(nil)
}

// DeleteBilling удаляет счёт: существование подтверждается через read-model,
// сумма при удалении не перепроверяется. Payload события — последний
// считанный снимок счёта.
func (h *Handler) DeleteBilling(ctx context.Context, req DeleteRequest) error {
	done := h.observeCommand(CommandDeleteBilling)

	if req.EntityID == "" {
		return done(domain.ErrMissingEntityID)
	}

	current, err := h.fetchBilling(ctx, req.EntityID)
	if err != nil {
		return done(err)
	}

	if err := h.publish(ctx, domain.EventTypeEntityDeleted, current); err != nil {
		return done(err)
	}

	h.logger.WithField("entity_id", current.EntityID).Info("billing deleted")
	return done(nil)
}

// fetchBilling читает текущее состояние счёта из read-model. Сервис никогда не
// хранит своё состояние сам: авторитетный снимок — это проекция event log.
func (h *Handler) fetchBilling(ctx context.Context, entityID string) (domain.Billing, error) {
	raw, err := h.readModel.GetEntity(ctx, "billing", entityID)
	if err != nil {
		return domain.Billing{}, err
	}
	if isNullResult(raw) {
		return domain.Billing{}, domain.ErrBillingNotFound
	}

	var current domain.Billing
	if err := json.Unmarshal(raw, &current); err != nil {
		return domain.Billing{}, domain.NewReadModelError(fmt.Errorf("decode billing: %w", err))
	}
	// read-model может не включать ключ в тело сущности.
	current.EntityID = entityID
	return current, nil
}

// publish отправляет событие в event store. Отказ публикации проваливает
// команду: принятый переход без долговременного события снаружи не существует.
func (h *Handler) publish(ctx context.Context, eventType domain.EventType, payload domain.Billing) error {
	event := domain.NewEvent(eventType, payload)
	if err := h.events.Publish(ctx, domain.StreamBilling, event); err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"entity_id":  payload.EntityID,
		}).Error("failed to publish event")
		if domain.IsUpstream(err) {
			return err
		}
		return domain.NewEventStoreError(err)
	}

	if h.metrics != nil {
		h.metrics.RecordEventPublished(string(eventType))
	}
	h.logger.WithFields(log.Fields{
		"event_type": eventType,
		"entity_id":  payload.EntityID,
	}).Debug("event published")
	return nil
}

// observeCommand фиксирует метрики одной команды и возвращает завершатель,
// который классифицирует исход и пробрасывает ошибку без изменений.
func (h *Handler) observeCommand(command string) func(error) error {
	start := time.Now()
	if h.metrics != nil {
		h.metrics.RecordCommandStarted()
	}

	return func(err error) error {
		if h.metrics != nil {
			h.metrics.ObserveCommandDuration(command, time.Since(start))
			h.metrics.RecordCommandFinished()
			if err != nil {
				h.metrics.RecordCommandRejected(command, rejectReason(err))
			} else {
				h.metrics.RecordCommandAccepted(command)
			}
		}
		return err
	}
}

// rejectReason сводит ошибку к метке причины для метрик.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingOrderParams), errors.Is(err, domain.ErrMissingEntityID), errors.Is(err, domain.ErrEmptyBatch):
		return "missing_parameter"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "invalid_amount"
	case errors.Is(err, domain.ErrBillingNotFound), errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrCartNotFound):
		return "not_found"
	case domain.IsUpstream(err):
		return "upstream_error"
	default:
		return "internal_error"
	}
}
