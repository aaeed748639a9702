package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// auditRepositoryInMemory хранит события аудита мутаций в порядке добавления.
type auditRepositoryInMemory struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
	seq    int64
}

// NewAuditRepository создаёт in-memory журнал аудита.
func NewAuditRepository() domain.AuditRepository {
	return &auditRepositoryInMemory{}
}

// Append добавляет событие, присваивая ему идентификатор.
func (r *auditRepositoryInMemory) Append(event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	event.ID = r.seq
	r.events = append(r.events, event)
	return nil
}

// List возвращает события по сущности в порядке добавления.
func (r *auditRepositoryInMemory) List(entityType string, entityID int64) ([]domain.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.AuditEvent, 0)
	for _, event := range r.events {
		if event.EntityType == entityType && event.EntityID == entityID {
			result = append(result, event)
		}
	}
	return result, nil
}

var _ domain.AuditRepository = (*auditRepositoryInMemory)(nil)
