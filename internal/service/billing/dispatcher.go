package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/messaging/kafka"
)

// Имена команд входящего интерфейса.
const (
	CommandCreateBillings = "create_billings"
	CommandUpdateBilling  = "update_billing"
	CommandDeleteBilling  = "delete_billing"
)

// Responder публикует ответ на команду в reply topic.
type Responder interface {
	Publish(topic, key string, value interface{}) error
}

// Dispatcher разбирает конверты команд из Kafka, вызывает Handler и публикует
// ответ. Отказ команды (missing parameter, неверная сумма и т.п.) — это
// УСПЕШНО обработанное сообщение с ответом-ошибкой; путь retry/DLQ
// предназначен только для транспортных сбоев: битый JSON, неизвестная команда,
// невозможность опубликовать ответ.
type Dispatcher struct {
	handler   *Handler
	responder Responder
	logger    *log.Entry
}

// NewDispatcher создаёт dispatcher. responder может быть nil, тогда ответы
// не публикуются (fire-and-forget режим).
func NewDispatcher(handler *Handler, responder Responder, logger *log.Entry) *Dispatcher {
	if logger == nil {
		logger = log.New().WithField("component", "billing-dispatcher")
	}
	return &Dispatcher{
		handler:   handler,
		responder: responder,
		logger:    logger,
	}
}

// Handle реализует kafka.MessageHandler.
func (d *Dispatcher) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var env kafka.CommandEnvelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return fmt.Errorf("decode command envelope: %w", err)
	}

	response, err := d.dispatch(ctx, env)
	if err != nil {
		return err
	}

	return d.respond(env, response)
}

// dispatch выполняет команду и сводит типизированный результат к конверту
// ответа. Ошибка возвращается только для неизвестной команды или битого
// payload — это не отказы, а непригодные для обработки сообщения.
func (d *Dispatcher) dispatch(ctx context.Context, env kafka.CommandEnvelope) (kafka.ResponseEnvelope, error) {
	switch env.Command {
	case CommandCreateBillings:
		reqs, err := decodeCreatePayload(env.Payload)
		if err != nil {
			return kafka.ResponseEnvelope{}, err
		}
		ids, err := d.handler.CreateBillings(ctx, reqs)
		if err != nil {
			return kafka.NewErrorResponse(env.CorrelationID, err.Error()), nil
		}
		return kafka.NewResultResponse(env.CorrelationID, ids), nil

	case CommandUpdateBilling:
		var req UpdateRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return kafka.ResponseEnvelope{}, fmt.Errorf("decode update payload: %w", err)
		}
		if err := d.handler.UpdateBilling(ctx, req); err != nil {
			return kafka.NewErrorResponse(env.CorrelationID, err.Error()), nil
		}
		return kafka.NewResultResponse(env.CorrelationID, true), nil

	case CommandDeleteBilling:
		var req DeleteRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return kafka.ResponseEnvelope{}, fmt.Errorf("decode delete payload: %w", err)
		}
		if err := d.handler.DeleteBilling(ctx, req); err != nil {
			return kafka.NewErrorResponse(env.CorrelationID, err.Error()), nil
		}
		return kafka.NewResultResponse(env.CorrelationID, true), nil

	default:
		return kafka.ResponseEnvelope{}, fmt.Errorf("unknown command %q", env.Command)
	}
}

// respond публикует ответ в reply_to topic. Пустой reply_to допустим:
// отправитель не ждёт ответа.
func (d *Dispatcher) respond(env kafka.CommandEnvelope, response kafka.ResponseEnvelope) error {
	if env.ReplyTo == "" || d.responder == nil {
		d.logger.WithField("command", env.Command).Debug("no reply_to, response dropped")
		return nil
	}
	if err := d.responder.Publish(env.ReplyTo, env.CorrelationID, response); err != nil {
		return fmt.Errorf("publish response: %w", err)
	}
	return nil
}

// decodeCreatePayload принимает либо один объект, либо непустой массив объектов.
func decodeCreatePayload(payload json.RawMessage) ([]CreateRequest, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode create payload: empty payload")
	}

	if trimmed[0] == '[' {
		var reqs []CreateRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, fmt.Errorf("decode create payload: %w", err)
		}
		return reqs, nil
	}

	var req CreateRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("decode create payload: %w", err)
	}
	return []CreateRequest{req}, nil
}
