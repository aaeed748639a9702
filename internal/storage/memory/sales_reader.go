package memory

import (
	"sort"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// salesReaderInMemory — отчётная проекция поверх общего Store.
type salesReaderInMemory struct {
	store *Store
}

// NewSalesReader возвращает in-memory реализацию SalesReader.
func NewSalesReader(store *Store) domain.SalesReader {
	return &salesReaderInMemory{store: store}
}

// TotalSales суммирует (цена × количество) по заказам товара.
// Товар без заказов даёт ноль, а не ошибку.
func (r *salesReaderInMemory) TotalSales(productID int64) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, order := range s.orders {
		if order.ProductID == productID {
			total += order.AmountMinor()
		}
	}
	return total, nil
}

// StockLevel классифицирует остаток товара.
func (r *salesReaderInMemory) StockLevel(productID int64) (domain.StockLevel, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[productID]
	if !ok {
		return "", domain.ErrProductNotFound
	}
	return product.StockLevel(), nil
}

// OrderDetails возвращает join заказов с именами клиента и товара.
func (r *salesReaderInMemory) OrderDetails(limit int) ([]domain.OrderDetail, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	details := make([]domain.OrderDetail, 0, len(s.orders))
	for _, order := range s.orders {
		detail := domain.OrderDetail{
			OrderID:     order.ID,
			Qty:         order.Qty,
			PriceMinor:  order.PriceMinor,
			AmountMinor: order.AmountMinor(),
			Status:      order.Status,
			OrderDate:   order.OrderDate,
		}
		if customer, ok := s.customers[order.CustomerID]; ok {
			detail.CustomerName = customer.FirstName + " " + customer.LastName
		}
		if product, ok := s.products[order.ProductID]; ok {
			detail.ProductName = product.Name
		}
		details = append(details, detail)
	}

	sort.Slice(details, func(i, j int) bool { return details[i].OrderID < details[j].OrderID })

	if limit > 0 && len(details) > limit {
		details = details[:limit]
	}
	return details, nil
}

var _ domain.SalesReader = (*salesReaderInMemory)(nil)
