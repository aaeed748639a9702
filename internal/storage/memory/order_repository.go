package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// orderRepositoryInMemory — реализация OrderRepository поверх общего Store.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Place атомарно вставляет заказ и списывает остаток товара.
// Весь check-then-decrement выполняется под мьютексом хранилища, поэтому два
// конкурентных размещения на один товар не могут увести остаток в минус.
func (r *orderRepositoryInMemory) Place(order domain.Order) (domain.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[order.CustomerID]; !ok {
		return domain.Order{}, domain.ErrCustomerNotFound
	}
	product, ok := s.products[order.ProductID]
	if !ok {
		return domain.Order{}, domain.ErrProductNotFound
	}
	if product.Stock < order.Qty {
		return domain.Order{}, domain.ErrInsufficientStock
	}

	now := time.Now().UTC()
	order.ID = s.nextOrderID()
	// Цена единицы фиксируется из товара в момент размещения.
	order.PriceMinor = product.PriceMinor
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	product.Stock -= order.Qty
	product.Version++
	product.UpdatedAt = now

	s.orders[order.ID] = order
	s.products[product.ID] = product
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id int64) (domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(customerID int64, limit int) ([]domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.CustomerID != customerID {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
