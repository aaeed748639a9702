package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrFirstNameRequired = errors.New("first name is required")
	// Ошибка отсутствующей фамилии клиента.
	ErrLastNameRequired = errors.New("last name is required")
	// Ошибка отсутствующего email.
	ErrEmailRequired = errors.New("email is required")
	// Ошибка формата email (ожидается local@domain.tld).
	ErrEmailInvalid = errors.New("email format is invalid")
	// Ошибка отсутствующего телефона.
	ErrPhoneRequired = errors.New("phone is required")
	// Ошибка отсутствующего адреса.
	ErrAddressRequired = errors.New("address is required")
	// Ошибка превышения допустимой длины поля.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отсутствующего описания товара.
	ErrProductDescriptionRequired = errors.New("product description is required")
	// ErrInvalidPrice возвращается при цене <= 0.
	ErrInvalidPrice = errors.New("price must be greater than zero")
	// ErrInvalidQuantity возвращается при отрицательном остатке или количестве <= 0 в заказе.
	ErrInvalidQuantity = errors.New("quantity is invalid")

	// ErrDuplicateEmail возвращается при попытке зарегистрировать занятый email.
	ErrDuplicateEmail = errors.New("customer email already registered")
	// ErrCustomerNotFound возвращается, если клиент не найден в хранилище.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается, если товар не найден в хранилище.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientStock возвращается, если остатка товара не хватает под заказ.
	ErrInsufficientStock = errors.New("insufficient product stock")
	// ErrCustomerHasOrders блокирует удаление клиента с существующими заказами.
	ErrCustomerHasOrders = errors.New("customer has existing orders")
	// ErrConflict сигнализирует о конфликте блокировок/версий; операцию можно повторить.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки подсистемы идемпотентности.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
)

// Стабильные машинные коды ошибок для внешнего контракта.
const (
	CodeValidation        = "validation_error"
	CodeInvalidPrice      = "invalid_price"
	CodeInvalidQuantity   = "invalid_quantity"
	CodeDuplicateEmail    = "duplicate_email"
	CodeCustomerNotFound  = "customer_not_found"
	CodeProductNotFound   = "product_not_found"
	CodeOrderNotFound     = "order_not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeCustomerHasOrders = "customer_has_orders"
	CodeConflict          = "conflict"
	CodeIdempotency       = "idempotency_error"
	CodeStore             = "store_error"
)

var validationErrs = []error{
	ErrFirstNameRequired,
	ErrLastNameRequired,
	ErrEmailRequired,
	ErrEmailInvalid,
	ErrPhoneRequired,
	ErrAddressRequired,
	ErrFieldTooLong,
	ErrProductNameRequired,
	ErrProductDescriptionRequired,
}

// Code возвращает стабильный машинный код для ошибки операции.
// Любая ошибка вне бизнес-таксономии трактуется как сбой хранилища.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPrice):
		return CodeInvalidPrice
	case errors.Is(err, ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, ErrDuplicateEmail):
		return CodeDuplicateEmail
	case errors.Is(err, ErrCustomerNotFound):
		return CodeCustomerNotFound
	case errors.Is(err, ErrProductNotFound):
		return CodeProductNotFound
	case errors.Is(err, ErrOrderNotFound):
		return CodeOrderNotFound
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrCustomerHasOrders):
		return CodeCustomerHasOrders
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrIdempotencyHashMismatch),
		errors.Is(err, ErrIdempotencyKeyAlreadyExists),
		errors.Is(err, ErrIdempotencyKeyNotFound),
		errors.Is(err, ErrIdempotencyKeyRequired),
		errors.Is(err, ErrIdempotencyRequestHashRequired):
		return CodeIdempotency
	}
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return CodeValidation
		}
	}
	return CodeStore
}

// IsNotFound проверяет, что ошибка означает отсутствие сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsRetryable сообщает, безопасно ли повторить операцию с теми же аргументами.
// Повторяемы только конфликты блокировок и сбои хранилища; бизнес-ошибки — нет.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	code := Code(err)
	return code == CodeConflict || code == CodeStore
}
