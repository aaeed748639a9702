package domain

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Create сохраняет нового клиента и возвращает присвоенный идентификатор.
	// Возвращает ErrDuplicateEmail, если email уже занят (точное совпадение).
	Create(customer Customer) (int64, error)
	// Get возвращает клиента по идентификатору или ErrCustomerNotFound.
	Get(id int64) (Customer, error)
	// Delete удаляет клиента в одной транзакции с проверкой ссылающихся заказов.
	// Возвращает ErrCustomerHasOrders при наличии заказов и ErrCustomerNotFound,
	// если ни одна строка не была затронута. Каскадного удаления заказов нет.
	Delete(id int64) error
}

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// Create сохраняет новый товар и возвращает присвоенный идентификатор.
	Create(product Product) (int64, error)
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id int64) (Product, error)
	// UpdatePrice атомарно меняет цену и updated_at.
	// Возвращает ErrProductNotFound, если ни одна строка не была затронута.
	UpdatePrice(id int64, priceMinor int64) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Place атомарно вставляет заказ и списывает остаток товара: либо применяются
	// оба эффекта, либо ни один. Цена единицы фиксируется из товара внутри той же
	// транзакции. Проверки выполняются по порядку: клиент существует, товар
	// существует, остатка достаточно. Последовательность check-then-decrement
	// сериализуется по товару; при истечении ожидания блокировки возвращается
	// ErrConflict (операцию можно повторить).
	Place(order Order) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id int64) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением выборки.
	ListByCustomer(customerID int64, limit int) ([]Order, error)
}
