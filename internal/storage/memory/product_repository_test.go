package memory_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/storage/memory"
)

func TestProductRepository_CreateGet(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewProductRepository(store)

	id, err := repo.Create(domain.Product{Name: "Widget", Description: "w", PriceMinor: 1000, Stock: 5})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first id 1, got %d", id)
	}

	stored, err := repo.Get(id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.PriceMinor != 1000 || stored.Stock != 5 {
		t.Fatalf("stored product differs: %+v", stored)
	}
}

func TestProductRepository_UpdatePrice(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewProductRepository(store)

	id, err := repo.Create(domain.Product{Name: "Widget", Description: "w", PriceMinor: 1000, Stock: 5})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.UpdatePrice(id, 1500); err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	stored, err := repo.Get(id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.PriceMinor != 1500 {
		t.Fatalf("expected price 1500, got %d", stored.PriceMinor)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version increment, got %d", stored.Version)
	}
}

func TestProductRepository_UpdatePriceNotFound(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewProductRepository(store)

	if err := repo.UpdatePrice(42, 1500); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
