package memory

import (
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// productRepositoryInMemory — реализация ProductRepository поверх общего Store.
type productRepositoryInMemory struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

// Create сохраняет новый товар и возвращает присвоенный идентификатор.
func (r *productRepositoryInMemory) Create(product domain.Product) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextProductID()
	// В момент создания created_at и updated_at совпадают.
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	return product.ID, nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(id int64) (domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// UpdatePrice атомарно меняет цену, версию и updated_at товара.
func (r *productRepositoryInMemory) UpdatePrice(id int64, priceMinor int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}

	product.PriceMinor = priceMinor
	product.Version++
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
