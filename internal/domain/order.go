package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
// Ядро создаёт заказы только в статусе pending; переходы статусов —
// точка расширения и здесь не реализованы.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order ссылается на клиента и товар по идентификаторам, не владея ими.
type Order struct {
	ID         int64
	CustomerID int64
	ProductID  int64
	// Qty — заказанное количество; не может превышать остаток товара на момент размещения.
	Qty int32
	// PriceMinor — цена за единицу, зафиксированная из товара в момент размещения.
	PriceMinor int64
	Status     OrderStatus
	// OrderDate устанавливается при создании и не меняется.
	OrderDate time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AmountMinor возвращает сумму заказа в минимальных единицах.
func (o *Order) AmountMinor() int64 {
	return int64(o.Qty) * o.PriceMinor
}

// ValidateForPlacement проверяет входные данные заказа до обращения к хранилищу.
func (o *Order) ValidateForPlacement() error {
	if o.CustomerID <= 0 {
		return ErrCustomerNotFound
	}
	if o.ProductID <= 0 {
		return ErrProductNotFound
	}
	if o.Qty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
