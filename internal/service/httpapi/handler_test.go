package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vladislavdragonenkov/market/internal/service/httpapi"
	"github.com/vladislavdragonenkov/market/internal/service/market"
	"github.com/vladislavdragonenkov/market/internal/storage/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStore()
	svc := market.NewServiceWithoutMetrics(
		memory.NewCustomerRepository(store),
		memory.NewProductRepository(store),
		memory.NewOrderRepository(store),
		memory.NewSalesReader(store),
		memory.NewOutboxRepository(),
		memory.NewAuditRepository(),
		nil,
	)
	handler := httpapi.NewHandler(svc, memory.NewIdempotencyRepository(), nil)
	return handler.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rec.Body.String())
	}
	return envelope.Error.Code
}

const janeBody = `{"first_name":"Jane","last_name":"Doe","email":"jane.doe@example.com","phone":"+1-202-555-0101","address":"1 Main St"}`
const widgetBody = `{"name":"Widget","description":"A widget","price_minor":1000,"stock":5}`

func TestCreateCustomerEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID != 1 || created.Email != "jane.doe@example.com" {
		t.Fatalf("unexpected response: %+v", created)
	}

	// Повтор с тем же email — 409 со стабильным кодом.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "duplicate_email" {
		t.Fatalf("expected duplicate_email code, got %q", code)
	}
}

func TestCreateCustomerEndpoint_Validation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/customers",
		`{"first_name":"Jane","last_name":"Doe","email":"bad","phone":"1","address":"x"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "validation_error" {
		t.Fatalf("expected validation_error code, got %q", code)
	}
}

func TestCreateProductEndpoint_InvalidPrice(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products",
		`{"name":"Widget","description":"A widget","price_minor":0,"stock":5}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "invalid_price" {
		t.Fatalf("expected invalid_price code, got %q", code)
	}
}

func TestPlaceOrderEndpoint(t *testing.T) {
	router := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil); rec.Code != http.StatusCreated {
		t.Fatalf("create customer: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil); rec.Code != http.StatusCreated {
		t.Fatalf("create product: %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders",
		`{"customer_id":1,"product_id":1,"qty":3}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var placed struct {
		ID          int64 `json:"id"`
		PriceMinor  int64 `json:"price_minor"`
		AmountMinor int64 `json:"amount_minor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &placed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if placed.ID != 1 || placed.PriceMinor != 1000 || placed.AmountMinor != 3000 {
		t.Fatalf("unexpected order response: %+v", placed)
	}

	// Остаток 2, заказ на 3 отклоняется.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders",
		`{"customer_id":1,"product_id":1,"qty":3}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock code, got %q", code)
	}

	// Порядок проверок: неизвестный клиент раньше неизвестного товара.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders",
		`{"customer_id":99,"product_id":99,"qty":1}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "customer_not_found" {
		t.Fatalf("expected customer_not_found code, got %q", code)
	}
}

func TestDeleteCustomerEndpoint_GuardedByOrders(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":1}`, nil)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/customers/1", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "customer_has_orders" {
		t.Fatalf("expected customer_has_orders code, got %q", code)
	}

	// Клиент без заказов удаляется.
	other := `{"first_name":"John","last_name":"Roe","email":"john.roe@example.com","phone":"+1-202-555-0102","address":"2 Main St"}`
	doJSON(t, router, http.MethodPost, "/api/v1/customers", other, nil)
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/customers/2", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/customers/2", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUpdateProductPriceEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/products/1/price", `{"price_minor":2500}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var product struct {
		PriceMinor int64 `json:"price_minor"`
		Stock      int32 `json:"stock"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &product); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if product.PriceMinor != 2500 || product.Stock != 5 {
		t.Fatalf("unexpected product response: %+v", product)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/products/99/price", `{"price_minor":2500}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)

	// Проекция продаж без заказов — ноль, не ошибка.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/reports/products/1/total-sales", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sales struct {
		TotalSalesMinor int64 `json:"total_sales_minor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sales); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sales.TotalSalesMinor != 0 {
		t.Fatalf("expected zero sales, got %d", sales.TotalSalesMinor)
	}

	doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":2}`, nil)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/products/1/total-sales", "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &sales); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sales.TotalSalesMinor != 2000 {
		t.Fatalf("expected sales 2000, got %d", sales.TotalSalesMinor)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/products/1/stock-level", "", nil)
	var level struct {
		StockLevel string `json:"stock_level"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &level); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if level.StockLevel != "low_stock" {
		t.Fatalf("expected low_stock, got %q", level.StockLevel)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/order-details?limit=10", "", nil)
	var details struct {
		OrderDetails []struct {
			CustomerName string `json:"customer_name"`
			ProductName  string `json:"product_name"`
			AmountMinor  int64  `json:"amount_minor"`
		} `json:"order_details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(details.OrderDetails) != 1 {
		t.Fatalf("expected 1 detail row, got %d", len(details.OrderDetails))
	}
	row := details.OrderDetails[0]
	if row.CustomerName != "Jane Doe" || row.ProductName != "Widget" || row.AmountMinor != 2000 {
		t.Fatalf("unexpected detail row: %+v", row)
	}
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)

	headers := map[string]string{"Idempotency-Key": "order-key-1"}
	orderBody := `{"customer_id":1,"product_id":1,"qty":2}`

	first := doJSON(t, router, http.MethodPost, "/api/v1/orders", orderBody, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	// Повтор с тем же ключом и телом возвращает сохранённый ответ без
	// повторного списания остатка.
	second := doJSON(t, router, http.MethodPost, "/api/v1/orders", orderBody, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d: %s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs:\n%s\nvs\n%s", first.Body.String(), second.Body.String())
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/1", "", nil)
	var product struct {
		Stock int32 `json:"stock"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &product); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if product.Stock != 3 {
		t.Fatalf("replay must not decrement stock twice, got %d", product.Stock)
	}
}

func TestIdempotencyMiddleware_RejectsHashMismatch(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)

	headers := map[string]string{"Idempotency-Key": "order-key-2"}
	if rec := doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":1}`, headers); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":2}`, headers)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with different body, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "idempotency_error" {
		t.Fatalf("expected idempotency_error code, got %q", code)
	}
}

func TestIdempotencyMiddleware_ReleasesKeyOnRetryableFailure(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)

	headers := map[string]string{"Idempotency-Key": "order-key-3"}

	// Заказ на 6 при остатке 5 — повторяемый отказ, ключ освобождается.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":6}`, headers)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeErrorCode(t, rec); code != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock code, got %q", code)
	}

	// Повтор с тем же ключом выполняется заново, а не отклоняется как дубликат.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":6}`, headers)
	if code := decodeErrorCode(t, rec); code != "insufficient_stock" {
		t.Fatalf("retry with same key must re-execute, got %q", code)
	}

	// Посильное количество с тем же ключом проходит.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders", `{"customer_id":1,"product_id":1,"qty":2}`, headers)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 after key release, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListCustomerOrdersEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/customers", janeBody, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/products", widgetBody, nil)
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"customer_id":1,"product_id":1,"qty":%d}`, 1)
		if rec := doJSON(t, router, http.MethodPost, "/api/v1/orders", body, nil); rec.Code != http.StatusCreated {
			t.Fatalf("place order %d: %d", i, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/customers/1/orders?limit=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed struct {
		Orders []struct {
			ID int64 `json:"id"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed.Orders) != 2 {
		t.Fatalf("expected limit to cap result at 2, got %d", len(listed.Orders))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/customers/42/orders", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown customer, got %d", rec.Code)
	}
}
