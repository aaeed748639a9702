package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// placeLockTimeout ограничивает ожидание строчной блокировки товара.
// По истечении PostgreSQL вернёт 55P03, что транслируется в ErrConflict.
const placeLockTimeout = "500ms"

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Place вставляет заказ и списывает остаток в одной транзакции.
// Строка товара блокируется через SELECT ... FOR UPDATE, поэтому
// check-then-decrement сериализуется по товару.
func (r *orderRepository) Place(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", placeLockTimeout)); err != nil {
		return domain.Order{}, fmt.Errorf("set lock timeout: %w", err)
	}

	// Порядок проверок фиксирован: клиент, затем товар, затем остаток.
	var customerExists bool
	if err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)
	`, order.CustomerID).Scan(&customerExists); err != nil {
		return domain.Order{}, fmt.Errorf("check customer exists: %w", err)
	}
	if !customerExists {
		err = domain.ErrCustomerNotFound
		return domain.Order{}, err
	}

	var (
		priceMinor int64
		stock      int32
	)
	err = tx.QueryRowContext(ctx, `
		SELECT price_minor, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, order.ProductID).Scan(&priceMinor, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrProductNotFound
			return domain.Order{}, err
		}
		if isLockTimeout(err) {
			err = domain.ErrConflict
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("lock product row: %w", err)
	}

	if stock < order.Qty {
		err = domain.ErrInsufficientStock
		return domain.Order{}, err
	}

	placed := order
	placed.PriceMinor = priceMinor
	if placed.Status == "" {
		placed.Status = domain.OrderStatusPending
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, product_id, qty, price_minor, status, order_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW(),NOW())
		RETURNING id, order_date, created_at, updated_at
	`,
		placed.CustomerID, placed.ProductID, placed.Qty, placed.PriceMinor, string(placed.Status),
	).Scan(&placed.ID, &placed.OrderDate, &placed.CreatedAt, &placed.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2
	`, placed.Qty, placed.ProductID); err != nil {
		return domain.Order{}, fmt.Errorf("decrement product stock: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit place order: %w", err)
	}

	return placed, nil
}

func (r *orderRepository) Get(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		order  domain.Order
		status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, product_id, qty, price_minor, status, order_date, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.CustomerID, &order.ProductID, &order.Qty, &order.PriceMinor,
		&status, &order.OrderDate, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	return order, nil
}

func (r *orderRepository) ListByCustomer(customerID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_id, product_id, qty, price_minor, status, order_date, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			order  domain.Order
			status string
		)
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.ProductID, &order.Qty, &order.PriceMinor,
			&status, &order.OrderDate, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
