package kafka

import "encoding/json"

// Topics сервиса.
const (
	// TopicBillingCommands — входящие команды записи.
	TopicBillingCommands = "billing.commands"
	// TopicBillingEvents — доменные события потока billing.
	TopicBillingEvents = "billing.events"
	// TopicDeadLetterQueue — команды, которые не удалось обработать после retry.
	TopicDeadLetterQueue = "billing.dlq"
)

// GroupID — consumer group сервиса.
const GroupID = "billing-service"

// Kafka headers для retry/DLQ логики.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// CommandEnvelope — конверт входящей команды. Payload — объект запроса
// (для create_billings допустим массив объектов).
type CommandEnvelope struct {
	Command       string          `json:"command"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ReplyTo       string          `json:"reply_to,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ResponseEnvelope — ответ на команду. Поля result и error взаимоисключающие:
// наличие error авторитетно означает отказ независимо от прочих полей.
type ResponseEnvelope struct {
	CorrelationID string      `json:"correlation_id,omitempty"`
	Result        interface{} `json:"result,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// NewResultResponse формирует успешный ответ.
func NewResultResponse(correlationID string, result interface{}) ResponseEnvelope {
	return ResponseEnvelope{CorrelationID: correlationID, Result: result}
}

// NewErrorResponse формирует ответ-отказ с человекочитаемой причиной.
func NewErrorResponse(correlationID string, reason string) ResponseEnvelope {
	return ResponseEnvelope{CorrelationID: correlationID, Error: reason}
}
