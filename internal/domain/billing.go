package domain

import "github.com/google/uuid"

// StreamBilling — имя потока событий, в который сервис публикует все переходы состояния.
const StreamBilling = "billing"

// Billing агрегирует счёт на оплату, привязанный к внешнему заказу.
// Сервис не владеет заказом: order_id хранится как ссылка по значению.
type Billing struct {
	// EntityID — глобально уникальный идентификатор, генерируется при создании
	// и дальше не меняется.
	EntityID string `json:"entity_id"`
	// OrderID — ссылка на заказ во внешнем read-model.
	OrderID string `json:"order_id"`
	// Amount — заявленная сумма к оплате в целых денежных единицах.
	Amount int64 `json:"amount"`
}

// NewBilling создаёт новый счёт со свежим 128-битным случайным идентификатором.
// Чистая фабрика: никакого I/O и никакой валидации — проверка суммы выполняется
// вызывающей стороной до публикации события.
func NewBilling(orderID string, amount int64) Billing {
	return Billing{
		EntityID: uuid.NewString(),
		OrderID:  orderID,
		Amount:   amount,
	}
}
