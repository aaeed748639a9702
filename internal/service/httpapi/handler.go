package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/market/internal/domain"
	"github.com/vladislavdragonenkov/market/internal/service/market"
)

// Handler реализует HTTP-обёртку над транзакционным ядром.
type Handler struct {
	service     *market.Service
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
}

// NewHandler создаёт HTTP-handler сервиса.
// idempotency может быть nil: тогда заголовок Idempotency-Key игнорируется.
func NewHandler(service *market.Service, idempotency domain.IdempotencyRepository, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &Handler{
		service:     service,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Router собирает chi-маршрутизатор со всеми эндпоинтами.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.idempotency != nil {
				r.Use(h.idempotencyMiddleware)
			}
			r.Post("/customers", h.createCustomer)
			r.Post("/products", h.createProduct)
			r.Post("/orders", h.placeOrder)
		})

		r.Get("/customers/{id}", h.getCustomer)
		r.Delete("/customers/{id}", h.deleteCustomer)
		r.Get("/customers/{id}/orders", h.listCustomerOrders)

		r.Get("/products/{id}", h.getProduct)
		r.Patch("/products/{id}/price", h.updateProductPrice)

		r.Get("/orders/{id}", h.getOrder)

		r.Get("/reports/products/{id}/total-sales", h.totalSales)
		r.Get("/reports/products/{id}/stock-level", h.stockLevel)
		r.Get("/reports/order-details", h.orderDetails)

		r.Get("/audit/{entityType}/{id}", h.auditTrail)
	})

	return r
}

type customerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type customerResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "malformed request body")
		return
	}

	id, err := h.service.CreateCustomer(domain.Customer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	customer, err := h.service.GetCustomer(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	customer, err := h.service.GetCustomer(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCustomer(id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	// Клиент должен существовать, чтобы пустой список не маскировал опечатку в id.
	if _, err := h.service.GetCustomer(id); err != nil {
		h.writeError(w, err)
		return
	}

	orders, err := h.service.ListCustomerOrders(id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	responses := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": responses})
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceMinor  int64  `json:"price_minor"`
	Stock       int32  `json:"stock"`
}

type productResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceMinor  int64     `json:"price_minor"`
	Stock       int32     `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "malformed request body")
		return
	}

	id, err := h.service.CreateProduct(domain.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		Stock:       req.Stock,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.service.GetProduct(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toProductResponse(product))
}

type priceRequest struct {
	PriceMinor int64 `json:"price_minor"`
}

func (h *Handler) updateProductPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "malformed request body")
		return
	}

	if err := h.service.UpdateProductPrice(id, req.PriceMinor); err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.service.GetProduct(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toProductResponse(product))
}

type orderRequest struct {
	CustomerID int64 `json:"customer_id"`
	ProductID  int64 `json:"product_id"`
	Qty        int32 `json:"qty"`
}

type orderResponse struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	ProductID   int64     `json:"product_id"`
	Qty         int32     `json:"qty"`
	PriceMinor  int64     `json:"price_minor"`
	AmountMinor int64     `json:"amount_minor"`
	Status      string    `json:"status"`
	OrderDate   time.Time `json:"order_date"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "malformed request body")
		return
	}

	placed, err := h.service.PlaceOrder(domain.Order{
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Qty:        req.Qty,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toOrderResponse(placed))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) totalSales(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	total, err := h.service.TotalSales(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":        id,
		"total_sales_minor": total,
	})
}

func (h *Handler) stockLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	level, err := h.service.StockLevel(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":  id,
		"stock_level": string(level),
	})
}

type orderDetailResponse struct {
	OrderID      int64     `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	ProductName  string    `json:"product_name"`
	Qty          int32     `json:"qty"`
	PriceMinor   int64     `json:"price_minor"`
	AmountMinor  int64     `json:"amount_minor"`
	Status       string    `json:"status"`
	OrderDate    time.Time `json:"order_date"`
}

func (h *Handler) orderDetails(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	details, err := h.service.OrderDetails(limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	responses := make([]orderDetailResponse, 0, len(details))
	for _, detail := range details {
		responses = append(responses, orderDetailResponse{
			OrderID:      detail.OrderID,
			CustomerName: detail.CustomerName,
			ProductName:  detail.ProductName,
			Qty:          detail.Qty,
			PriceMinor:   detail.PriceMinor,
			AmountMinor:  detail.AmountMinor,
			Status:       string(detail.Status),
			OrderDate:    detail.OrderDate,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"order_details": responses})
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	events, err := h.service.AuditTrail(entityType, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
	}
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceMinor:  p.PriceMinor,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		ProductID:   o.ProductID,
		Qty:         o.Qty,
		PriceMinor:  o.PriceMinor,
		AmountMinor: o.AmountMinor(),
		Status:      string(o.Status),
		OrderDate:   o.OrderDate,
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
