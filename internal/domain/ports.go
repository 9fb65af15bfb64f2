package domain

import (
	"context"
	"encoding/json"
)

// ReadModelGateway описывает запрос-ответное взаимодействие с read-model сервисом.
// Реализации обязаны ограничивать каждый вызов таймаутом и помечать любые ошибки
// источником через NewReadModelError. Пустой (null) result возвращается как
// nil RawMessage без ошибки — отсутствие сущности решает вызывающая сторона.
type ReadModelGateway interface {
	// GetEntity возвращает одну сущность по логическому имени типа и id.
	GetEntity(ctx context.Context, name, id string) (json.RawMessage, error)
	// GetEntities возвращает набор сущностей по списку id.
	GetEntities(ctx context.Context, name string, ids []string) (json.RawMessage, error)
}

// EventLog описывает публикацию доменных событий в append-only лог.
// Publish обязан вернуться только после того, как событие стало долговременным:
// ответ команды считается финальным не раньше подтверждения записи.
type EventLog interface {
	Publish(ctx context.Context, stream string, event Event) error
}
