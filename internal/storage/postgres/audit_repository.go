package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository создаёт PostgreSQL-реализацию журнала аудита.
func NewAuditRepository(store *Store) domain.AuditRepository {
	return &auditRepository{db: store.DB()}
}

func (r *auditRepository) Append(event domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (entity_type, entity_id, event_type, detail, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
	`,
		event.EntityType, event.EntityID, event.EventType, event.Detail, occurred,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return nil
}

func (r *auditRepository) List(entityType string, entityID int64) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, event_type, detail, occurred_at
		FROM audit_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY id ASC
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var event domain.AuditEvent
		if err := rows.Scan(
			&event.ID, &event.EntityType, &event.EntityID,
			&event.EventType, &event.Detail, &event.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

var _ domain.AuditRepository = (*auditRepository)(nil)
