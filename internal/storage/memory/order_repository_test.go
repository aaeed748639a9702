package memory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/storage/memory"
)

// fixture с одним клиентом и одним товаром.
func newOrderFixture(t *testing.T, stock int32) (*memory.Store, int64, int64) {
	t.Helper()

	store := memory.NewStore()
	customerID, err := memory.NewCustomerRepository(store).Create(newCustomer("jane@x.com"))
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	productID, err := memory.NewProductRepository(store).Create(domain.Product{
		Name:        "Widget",
		Description: "A basic widget",
		PriceMinor:  1000,
		Stock:       stock,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return store, customerID, productID
}

func TestOrderRepository_PlaceDecrementsStock(t *testing.T) {
	store, customerID, productID := newOrderFixture(t, 5)
	orders := memory.NewOrderRepository(store)
	products := memory.NewProductRepository(store)

	order, err := orders.Place(domain.Order{CustomerID: customerID, ProductID: productID, Qty: 3})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if order.ID != 1 {
		t.Fatalf("expected order id 1, got %d", order.ID)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.PriceMinor != 1000 {
		t.Fatalf("expected captured unit price 1000, got %d", order.PriceMinor)
	}

	product, err := products.Get(productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 2 {
		t.Fatalf("expected stock 2 after placement, got %d", product.Stock)
	}
}

func TestOrderRepository_PlaceInsufficientStock(t *testing.T) {
	store, customerID, productID := newOrderFixture(t, 2)
	orders := memory.NewOrderRepository(store)
	products := memory.NewProductRepository(store)

	if _, err := orders.Place(domain.Order{CustomerID: customerID, ProductID: productID, Qty: 3}); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Остаток не изменился, заказ не создан.
	product, err := products.Get(productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 2 {
		t.Fatalf("stock mutated on failed placement: %d", product.Stock)
	}
	if listed, _ := orders.ListByCustomer(customerID, 0); len(listed) != 0 {
		t.Fatalf("expected no orders, got %d", len(listed))
	}
}

func TestOrderRepository_PlaceUnknownRefs(t *testing.T) {
	store, customerID, productID := newOrderFixture(t, 5)
	orders := memory.NewOrderRepository(store)

	if _, err := orders.Place(domain.Order{CustomerID: 999, ProductID: productID, Qty: 1}); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if _, err := orders.Place(domain.Order{CustomerID: customerID, ProductID: 999, Qty: 1}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

// Два конкурентных размещения по 6 при остатке 10: ровно одно должно пройти,
// остаток никогда не уходит в минус.
func TestOrderRepository_ConcurrentPlacement(t *testing.T) {
	store, customerID, productID := newOrderFixture(t, 10)
	orders := memory.NewOrderRepository(store)
	products := memory.NewProductRepository(store)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = orders.Place(domain.Order{CustomerID: customerID, ProductID: productID, Qty: 6})
		}(i)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			failed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("expected exactly one success and one insufficient-stock failure, got %d/%d", succeeded, failed)
	}

	product, err := products.Get(productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 4 {
		t.Fatalf("expected stock 4, got %d", product.Stock)
	}
	if product.Stock < 0 {
		t.Fatal("stock must never go negative")
	}
}

func TestOrderRepository_ListByCustomer(t *testing.T) {
	store, customerID, productID := newOrderFixture(t, 10)
	orders := memory.NewOrderRepository(store)

	for i := 0; i < 3; i++ {
		if _, err := orders.Place(domain.Order{CustomerID: customerID, ProductID: productID, Qty: 1}); err != nil {
			t.Fatalf("place failed: %v", err)
		}
	}

	listed, err := orders.ListByCustomer(customerID, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 orders with limit, got %d", len(listed))
	}

	all, err := orders.ListByCustomer(customerID, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all))
	}
}

func TestOrderRepository_Get(t *testing.T) {
	store, customerID, productID := newOrderFixture(t, 5)
	orders := memory.NewOrderRepository(store)

	placed, err := orders.Place(domain.Order{CustomerID: customerID, ProductID: productID, Qty: 2})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	stored, err := orders.Get(placed.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Qty != 2 || stored.CustomerID != customerID {
		t.Fatalf("stored order differs: %+v", stored)
	}

	if _, err := orders.Get(999); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
