package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

const defaultOrderDetailsLimit = 100

type salesReader struct {
	db *sql.DB
}

// NewSalesReader создаёт PostgreSQL-реализацию отчётных проекций.
func NewSalesReader(store *Store) domain.SalesReader {
	return &salesReader{db: store.DB()}
}

// TotalSales агрегирует сумму продаж товара; товар без заказов даёт ноль.
func (r *salesReader) TotalSales(productID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(price_minor * qty), 0)
		FROM orders
		WHERE product_id = $1
	`, productID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum product sales: %w", err)
	}

	return total, nil
}

func (r *salesReader) StockLevel(productID int64) (domain.StockLevel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stock int32
	err := r.db.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE id = $1
	`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrProductNotFound
		}
		return "", fmt.Errorf("select product stock: %w", err)
	}

	product := domain.Product{Stock: stock}
	return product.StockLevel(), nil
}

func (r *salesReader) OrderDetails(limit int) ([]domain.OrderDetail, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultOrderDetailsLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id,
		       c.first_name || ' ' || c.last_name,
		       p.name,
		       o.qty,
		       o.price_minor,
		       o.qty * o.price_minor,
		       o.status,
		       o.order_date
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		JOIN products p ON p.id = o.product_id
		ORDER BY o.order_date DESC, o.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query order details: %w", err)
	}
	defer rows.Close()

	details := make([]domain.OrderDetail, 0, limit)
	for rows.Next() {
		var (
			detail domain.OrderDetail
			status string
		)
		if err := rows.Scan(
			&detail.OrderID, &detail.CustomerName, &detail.ProductName,
			&detail.Qty, &detail.PriceMinor, &detail.AmountMinor,
			&status, &detail.OrderDate,
		); err != nil {
			return nil, fmt.Errorf("scan order detail row: %w", err)
		}
		detail.Status = domain.OrderStatus(status)
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order detail rows: %w", err)
	}

	return details, nil
}

var _ domain.SalesReader = (*salesReader)(nil)
