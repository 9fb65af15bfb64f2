package domain

// Проекции внешних сущностей, которые сервис читает из read-model при проверке
// суммы. Это денормализованные снимки, они могут отставать от event store;
// сервис принимает это окно устаревания как данность.

// Order — проекция заказа. Из заказа нужна только ссылка на корзину.
type Order struct {
	ID     string `json:"id"`
	CartID string `json:"cart_id"`
}

// Cart — проекция корзины со списком товаров.
type Cart struct {
	ID         string   `json:"id"`
	ProductIDs []string `json:"product_ids"`
}

// Product — проекция товара. Цена приходит числом; дробная часть отбрасывается,
// арифметика сумм ведётся в целых единицах.
type Product struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

// PriceUnits возвращает цену товара в целых денежных единицах.
func (p Product) PriceUnits() int64 {
	return int64(p.Price)
}
