package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Коды ошибок PostgreSQL, которые транслируются в доменную таксономию.
const (
	pgCodeUniqueViolation = "23505"
	pgCodeLockNotAvail    = "55P03"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeUniqueViolation
	}
	return false
}

// isLockTimeout распознаёт истечение lock_timeout при ожидании блокировки строки.
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeLockNotAvail
	}
	return false
}
