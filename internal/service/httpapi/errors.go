package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// errorBody — внешний контракт ошибки: стабильный машинный код,
// человекочитаемое сообщение и признак повторяемости.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// statusForCode отображает машинные коды ошибок в HTTP-статусы.
func statusForCode(code string) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidPrice, domain.CodeInvalidQuantity:
		return http.StatusBadRequest
	case domain.CodeCustomerNotFound, domain.CodeProductNotFound, domain.CodeOrderNotFound:
		return http.StatusNotFound
	case domain.CodeDuplicateEmail, domain.CodeInsufficientStock,
		domain.CodeCustomerHasOrders, domain.CodeConflict, domain.CodeIdempotency:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := domain.Code(err)
	status := statusForCode(code)

	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed with storage error")
	}

	h.writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   err.Error(),
		Retryable: domain.IsRetryable(err),
	}})
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
		Code:    domain.CodeValidation,
		Message: message,
	}})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Warn("failed to encode response body")
	}
}
