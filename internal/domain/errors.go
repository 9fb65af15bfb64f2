package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOrderParams — в запросе нет order_id и/или amount.
	// Текст фиксирован контрактом ответа и сверяется потребителями.
	ErrMissingOrderParams = errors.New("missing mandatory parameter 'order_id' and/or 'amount'")
	// ErrMissingEntityID — в запросе update/delete нет entity_id.
	ErrMissingEntityID = errors.New("missing mandatory parameter 'entity_id'")
	// ErrAmountMismatch — заявленная сумма не совпала с пересчитанной по корзине.
	ErrAmountMismatch = errors.New("amount is not accurate")
	// ErrBillingNotFound — счёт отсутствует в read-model.
	ErrBillingNotFound = errors.New("could not find billing")
	// ErrOrderNotFound — заказ, на который ссылается счёт, отсутствует в read-model.
	ErrOrderNotFound = errors.New("could not find order")
	// ErrCartNotFound — корзина заказа отсутствует в read-model.
	ErrCartNotFound = errors.New("could not find cart")
	// ErrEmptyBatch — batch create получил пустой список.
	ErrEmptyBatch = errors.New("empty billing batch")
)

// UpstreamError оборачивает ошибку внешнего коллаборатора, сохраняя её текст
// и помечая источник. Контракт ответа требует суффикс вида "(from read-model)".
type UpstreamError struct {
	// Origin — логическое имя коллаборатора: "read-model" или "event-store".
	Origin string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (from %s)", e.Err.Error(), e.Origin)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewReadModelError помечает ошибку как пришедшую из read-model.
func NewReadModelError(err error) error {
	return &UpstreamError{Origin: "read-model", Err: err}
}

// NewEventStoreError помечает ошибку как пришедшую из event store.
func NewEventStoreError(err error) error {
	return &UpstreamError{Origin: "event-store", Err: err}
}

// IsUpstream проверяет, вызвана ли ошибка отказом внешнего коллаборатора.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
