package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType определяет тип доменного события.
type EventType string

const (
	// EventTypeEntityCreated — счёт создан и принят.
	EventTypeEntityCreated EventType = "entity_created"
	// EventTypeEntityUpdated — счёт перезаписан новыми order_id/amount.
	EventTypeEntityUpdated EventType = "entity_updated"
	// EventTypeEntityDeleted — счёт удалён (payload — последнее известное состояние).
	EventTypeEntityDeleted EventType = "entity_deleted"
)

// Event — неизменяемый факт перехода состояния. События append-only и являются
// единственной долговременной записью изменений: локального хранилища у сервиса нет.
type Event struct {
	ID        string            `json:"event_id"`
	Type      EventType         `json:"event_type"`
	Payload   Billing           `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewEvent создаёт событие с полным снимком счёта на момент перехода.
func NewEvent(eventType EventType, payload Billing) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
