package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// Store — in-memory хранилище всех сущностей для локальной разработки и тестов.
// Репозитории разделяют один Store: мутации, затрагивающие несколько сущностей
// (размещение заказа, удаление клиента с проверкой заказов), выполняются под
// общим мьютексом и потому атомарны и сериализованы.
type Store struct {
	mu sync.RWMutex

	customers map[int64]domain.Customer
	products  map[int64]domain.Product
	orders    map[int64]domain.Order
	// emailIndex обеспечивает уникальность email при точном совпадении.
	emailIndex map[string]int64

	customerSeq int64
	productSeq  int64
	orderSeq    int64
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		customers:  make(map[int64]domain.Customer),
		products:   make(map[int64]domain.Product),
		orders:     make(map[int64]domain.Order),
		emailIndex: make(map[string]int64),
	}
}

func (s *Store) nextCustomerID() int64 {
	s.customerSeq++
	return s.customerSeq
}

func (s *Store) nextProductID() int64 {
	s.productSeq++
	return s.productSeq
}

func (s *Store) nextOrderID() int64 {
	s.orderSeq++
	return s.orderSeq
}
