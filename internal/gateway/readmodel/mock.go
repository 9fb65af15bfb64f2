package readmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

// Mock — конфигурируемая заглушка ReadModelGateway для тестов.
// Сущности складываются через Put; ошибки включаются через GetEntityErr /
// GetEntitiesErr. Отсутствующая сущность возвращается как null result,
// как это делает настоящий read-model.
type Mock struct {
	mu       sync.Mutex
	entities map[string]map[string]json.RawMessage

	GetEntityErr   error
	GetEntitiesErr error

	GetEntityCalls   int
	GetEntitiesCalls int
}

// NewMock возвращает пустую заглушку.
func NewMock() *Mock {
	return &Mock{entities: make(map[string]map[string]json.RawMessage)}
}

// Put сохраняет сущность под логическим именем типа и id.
func (m *Mock) Put(name, id string, entity interface{}) {
	data, err := json.Marshal(entity)
	if err != nil {
		panic(fmt.Sprintf("mock read-model: marshal %s/%s: %v", name, id, err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entities[name] == nil {
		m.entities[name] = make(map[string]json.RawMessage)
	}
	m.entities[name][id] = data
}

// GetEntity возвращает настроенную сущность или null result и считает вызовы.
func (m *Mock) GetEntity(ctx context.Context, name, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetEntityCalls++
	if m.GetEntityErr != nil {
		return nil, m.GetEntityErr
	}

	data, ok := m.entities[name][id]
	if !ok {
		return json.RawMessage("null"), nil
	}
	return data, nil
}

// GetEntities возвращает все найденные сущности списка, пропуская отсутствующие.
func (m *Mock) GetEntities(ctx context.Context, name string, ids []string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetEntitiesCalls++
	if m.GetEntitiesErr != nil {
		return nil, m.GetEntitiesErr
	}

	found := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		if data, ok := m.entities[name][id]; ok {
			found = append(found, data)
		}
	}

	data, err := json.Marshal(found)
	if err != nil {
		return nil, err
	}
	return data, nil
}

var _ domain.ReadModelGateway = (*Mock)(nil)
