package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// HeaderIdempotencyKey — заголовок, включающий идемпотентную обработку мутации.
const HeaderIdempotencyKey = "Idempotency-Key"

// idempotencyMiddleware обеспечивает at-most-once семантику мутаций.
// Повторный запрос с тем же ключом и телом получает сохранённый ответ;
// тот же ключ с другим телом отклоняется.
func (h *Handler) idempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderIdempotencyKey)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeBadRequest(w, "failed to read request body")
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashRequest(r.Method, r.URL.Path, body)

		record, err := h.idempotency.CreateProcessing(key, requestHash, time.Time{})
		switch {
		case err == nil:
			// Первый запрос с этим ключом: выполняем и сохраняем ответ.
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			h.replayOrReject(w, record)
			return
		default:
			h.writeError(w, err)
			return
		}

		recorder := newResponseRecorder(w)
		next.ServeHTTP(recorder, r)

		markErr := error(nil)
		if recorder.status < http.StatusInternalServerError && recorder.status != http.StatusConflict {
			markErr = h.idempotency.MarkDone(key, recorder.body.Bytes(), recorder.status)
		} else {
			// Конфликты и сбои хранилища повторяемы: освобождаем ключ,
			// чтобы следующая попытка с тем же ключом выполнилась заново.
			markErr = h.idempotency.Delete(key)
		}
		if markErr != nil {
			h.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to persist idempotency result")
		}
	})
}

// replayOrReject обрабатывает повторный запрос с уже известным ключом.
func (h *Handler) replayOrReject(w http.ResponseWriter, record domain.IdempotencyRecord) {
	switch record.Status {
	case domain.IdempotencyStatusDone:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
	default:
		// Ключ всё ещё в processing: параллельный запрос отклоняется.
		h.writeError(w, domain.ErrIdempotencyKeyAlreadyExists)
	}
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte("\n"))
	sum.Write([]byte(path))
	sum.Write([]byte("\n"))
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

// responseRecorder перехватывает статус и тело ответа для сохранения
// в idempotency-хранилище.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
