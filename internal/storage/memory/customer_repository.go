package memory

import (
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// customerRepositoryInMemory — реализация CustomerRepository поверх общего Store.
type customerRepositoryInMemory struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepositoryInMemory{store: store}
}

// Create сохраняет клиента, если email ещё не занят.
func (r *customerRepositoryInMemory) Create(customer domain.Customer) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailIndex[customer.Email]; exists {
		return 0, domain.ErrDuplicateEmail
	}

	customer.ID = s.nextCustomerID()
	// В момент создания created_at и updated_at совпадают.
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	s.customers[customer.ID] = customer
	s.emailIndex[customer.Email] = customer.ID
	return customer.ID, nil
}

// Get возвращает клиента или ErrCustomerNotFound.
func (r *customerRepositoryInMemory) Get(id int64) (domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// Delete удаляет клиента; проверка ссылающихся заказов и удаление выполняются
// под одним мьютексом, каскадного удаления заказов нет.
func (r *customerRepositoryInMemory) Delete(id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	for _, order := range s.orders {
		if order.CustomerID == id {
			return domain.ErrCustomerHasOrders
		}
	}

	delete(s.customers, id)
	delete(s.emailIndex, customer.Email)
	return nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
