package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

// checkAmount пересчитывает ожидаемую сумму счёта по цепочке
// order → cart → products и сравнивает её с заявленной.
//
// Каждый вызов заново читает read-model: кэша нет, поэтому окно устаревания
// ограничено латентностью трёх запросов, но гонка с параллельным изменением
// заказа/корзины/товаров остаётся принятым компромиссом.
func (h *Handler) checkAmount(ctx context.Context, billing domain.Billing) error {
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveValidationDuration(time.Since(start))
		}
	}()

	order, err := h.fetchOrder(ctx, billing.OrderID)
	if err != nil {
		return err
	}

	cart, err := h.fetchCart(ctx, order.CartID)
	if err != nil {
		return err
	}

	products, err := h.fetchProducts(ctx, cart.ProductIDs)
	if err != nil {
		return err
	}

	var expected int64
	for _, product := range products {
		expected += product.PriceUnits()
	}

	if expected != billing.Amount {
		h.logger.WithFields(log.Fields{
			"order_id": billing.OrderID,
			"claimed":  billing.Amount,
			"expected": expected,
		}).Debug("amount mismatch")
		return domain.ErrAmountMismatch
	}

	return nil
}

func (h *Handler) fetchOrder(ctx context.Context, orderID string) (domain.Order, error) {
	raw, err := h.readModel.GetEntity(ctx, "order", orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if isNullResult(raw) {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, domain.NewReadModelError(fmt.Errorf("decode order: %w", err))
	}
	return order, nil
}

func (h *Handler) fetchCart(ctx context.Context, cartID string) (domain.Cart, error) {
	raw, err := h.readModel.GetEntity(ctx, "cart", cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if isNullResult(raw) {
		return domain.Cart{}, domain.ErrCartNotFound
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return domain.Cart{}, domain.NewReadModelError(fmt.Errorf("decode cart: %w", err))
	}
	return cart, nil
}

func (h *Handler) fetchProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	raw, err := h.readModel.GetEntities(ctx, "product", ids)
	if err != nil {
		return nil, err
	}
	if isNullResult(raw) {
		return nil, nil
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, domain.NewReadModelError(fmt.Errorf("decode products: %w", err))
	}
	return products, nil
}

// isNullResult распознаёт отсутствующий result: read-model возвращает null,
// когда сущности нет, и это не транспортная ошибка.
func isNullResult(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
