package market

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/metrics"
)

// Имена операций для метрик и логов.
const (
	opCreateCustomer = "create_customer"
	opDeleteCustomer = "delete_customer"
	opCreateProduct  = "create_product"
	opUpdatePrice    = "update_product_price"
	opPlaceOrder     = "place_order"
)

// Параметры повтора размещения заказа при конфликте блокировок.
const (
	placeMaxRetries = 3
	placeBaseDelay  = 10 * time.Millisecond
)

// Service реализует транзакционное ядро маркетплейса: пять мутирующих
// операций над клиентами, товарами и заказами плюс чтение отчётных проекций.
type Service struct {
	customers domain.CustomerRepository
	products  domain.ProductRepository
	orders    domain.OrderRepository
	sales     domain.SalesReader
	outbox    domain.OutboxRepository
	audit     domain.AuditRepository
	logger    *log.Entry
	metrics   *metrics.OpsMetrics
}

// NewService создаёт рабочий экземпляр сервиса.
func NewService(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	sales domain.SalesReader,
	outbox domain.OutboxRepository,
	audit domain.AuditRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "market")
	}
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		sales:     sales,
		outbox:    outbox,
		audit:     audit,
		logger:    logger,
		metrics:   metrics.NewOpsMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	sales domain.SalesReader,
	outbox domain.OutboxRepository,
	audit domain.AuditRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "market")
	}
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		sales:     sales,
		outbox:    outbox,
		audit:     audit,
		logger:    logger,
		metrics:   nil, // Отключаем метрики для тестов
	}
}

// CreateCustomer регистрирует нового клиента.
// Email должен быть уникален в точном совпадении; при занятом email
// возвращается ErrDuplicateEmail без каких-либо эффектов.
func (s *Service) CreateCustomer(customer domain.Customer) (int64, error) {
	done := s.instrument(opCreateCustomer)

	if err := customer.Validate(); err != nil {
		done(err)
		return 0, err
	}

	id, err := s.customers.Create(customer)
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			s.logger.WithError(err).WithField("email", customer.Email).Error("create customer failed")
		}
		done(err)
		return 0, err
	}

	s.emitEvent("customer", id, "customer.registered", map[string]interface{}{
		"email": customer.Email,
	})
	s.logger.WithField("customer_id", id).Info("customer registered")
	done(nil)
	return id, nil
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(id int64) (domain.Customer, error) {
	return s.customers.Get(id)
}

// DeleteCustomer удаляет клиента без каскадного удаления заказов.
// Клиент хотя бы с одним заказом защищён от удаления: ErrCustomerHasOrders.
func (s *Service) DeleteCustomer(id int64) error {
	done := s.instrument(opDeleteCustomer)

	if err := s.customers.Delete(id); err != nil {
		done(err)
		return err
	}

	s.emitEvent("customer", id, "customer.deleted", nil)
	s.logger.WithField("customer_id", id).Info("customer deleted")
	done(nil)
	return nil
}

// CreateProduct добавляет товар в каталог.
// Цена должна быть строго положительной, остаток — неотрицательным.
func (s *Service) CreateProduct(product domain.Product) (int64, error) {
	done := s.instrument(opCreateProduct)

	if err := product.Validate(); err != nil {
		done(err)
		return 0, err
	}

	id, err := s.products.Create(product)
	if err != nil {
		s.logger.WithError(err).WithField("name", product.Name).Error("create product failed")
		done(err)
		return 0, err
	}

	s.emitEvent("product", id, "product.created", map[string]interface{}{
		"price_minor": product.PriceMinor,
		"stock":       product.Stock,
	})
	s.logger.WithField("product_id", id).Info("product created")
	done(nil)
	return id, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(id int64) (domain.Product, error) {
	return s.products.Get(id)
}

// UpdateProductPrice атомарно меняет цену товара.
// Остаток и прочие поля не затрагиваются; уже размещённые заказы
// сохраняют зафиксированную на момент размещения цену.
func (s *Service) UpdateProductPrice(id int64, priceMinor int64) error {
	done := s.instrument(opUpdatePrice)

	if priceMinor <= 0 {
		done(domain.ErrInvalidPrice)
		return domain.ErrInvalidPrice
	}

	if err := s.products.UpdatePrice(id, priceMinor); err != nil {
		done(err)
		return err
	}

	s.emitEvent("product", id, "product.price_changed", map[string]interface{}{
		"price_minor": priceMinor,
	})
	s.logger.WithFields(log.Fields{
		"product_id":  id,
		"price_minor": priceMinor,
	}).Info("product price updated")
	done(nil)
	return nil
}

// PlaceOrder размещает заказ: вставка заказа и списание остатка атомарны.
// Конфликт блокировок прозрачно повторяется с exponential backoff; если
// попытки исчерпаны, наружу уходит ErrConflict как повторяемая ошибка.
func (s *Service) PlaceOrder(order domain.Order) (domain.Order, error) {
	done := s.instrument(opPlaceOrder)

	if err := order.ValidateForPlacement(); err != nil {
		done(err)
		return domain.Order{}, err
	}

	var (
		placed domain.Order
		err    error
	)
	for attempt := 0; attempt < placeMaxRetries; attempt++ {
		placed, err = s.orders.Place(order)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == placeMaxRetries-1 {
			break
		}

		if s.metrics != nil {
			s.metrics.RecordConflictRetry()
		}
		s.logger.WithFields(log.Fields{
			"customer_id": order.CustomerID,
			"product_id":  order.ProductID,
			"attempt":     attempt + 1,
		}).Warn("lock conflict during order placement, retrying")

		delay := placeBaseDelay * time.Duration(1<<uint(attempt))
		time.Sleep(delay)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) && s.metrics != nil {
			s.metrics.RecordInsufficientStock()
		}
		done(err)
		return domain.Order{}, err
	}

	s.emitEvent("order", placed.ID, "order.placed", map[string]interface{}{
		"customer_id":  placed.CustomerID,
		"product_id":   placed.ProductID,
		"qty":          placed.Qty,
		"price_minor":  placed.PriceMinor,
		"amount_minor": placed.AmountMinor(),
	})
	s.logger.WithFields(log.Fields{
		"order_id":    placed.ID,
		"customer_id": placed.CustomerID,
		"product_id":  placed.ProductID,
		"qty":         placed.Qty,
	}).Info("order placed")
	done(nil)
	return placed, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(id int64) (domain.Order, error) {
	return s.orders.Get(id)
}

// ListCustomerOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListCustomerOrders(customerID int64, limit int) ([]domain.Order, error) {
	return s.orders.ListByCustomer(customerID, limit)
}

// TotalSales возвращает сумму продаж товара из отчётной проекции.
func (s *Service) TotalSales(productID int64) (int64, error) {
	return s.sales.TotalSales(productID)
}

// StockLevel возвращает классификацию остатка товара.
func (s *Service) StockLevel(productID int64) (domain.StockLevel, error) {
	return s.sales.StockLevel(productID)
}

// OrderDetails возвращает отчётный join заказов с именами клиентов и товаров.
func (s *Service) OrderDetails(limit int) ([]domain.OrderDetail, error) {
	return s.sales.OrderDetails(limit)
}

// AuditTrail возвращает историю мутаций сущности.
func (s *Service) AuditTrail(entityType string, entityID int64) ([]domain.AuditEvent, error) {
	return s.audit.List(entityType, entityID)
}

// instrument открывает учёт операции и возвращает замыкание для её завершения.
func (s *Service) instrument(op string) func(error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordOperationStarted()
	}
	return func(err error) {
		if s.metrics == nil {
			return
		}
		s.metrics.RecordOperationFinished()
		s.metrics.RecordOperation(op, err)
		s.metrics.RecordOperationDuration(op, time.Since(start))
	}
}

// emitEvent ставит событие в transactional outbox и пишет запись аудита.
// Сбои обеих подсистем не ломают уже применённую мутацию, только логируются.
func (s *Service) emitEvent(entityType string, entityID int64, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["entity_id"] = entityID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"entity": entityType,
			"event":  eventType,
		}).Error("marshal event failed")
		return
	}

	if s.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: entityType,
			AggregateID:   formatID(entityID),
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := s.outbox.Enqueue(msg); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"entity": entityType,
				"event":  eventType,
			}).Error("enqueue event failed")
		} else if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}

	s.appendAudit(entityType, entityID, eventType, data)
}

func (s *Service) appendAudit(entityType string, entityID int64, eventType string, data []byte) {
	if s.audit == nil {
		return
	}

	event := domain.AuditEvent{
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Detail:     string(data),
		Occurred:   time.Now().UTC(),
	}
	if err := s.audit.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"entity": entityType,
			"event":  eventType,
		}).Warn("append audit event failed")
	} else if s.metrics != nil {
		s.metrics.RecordAuditEvent()
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
