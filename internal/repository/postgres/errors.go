package postgres

import (
	"database/sql"
	"errors"

	"rentchain-backend/internal/domain"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// mapError translates driver errors into domain errors. what names the entity
// for the message, e.g. "offer o-1".
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewError(domain.KindNotFound, "%s not found", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.WrapError(domain.KindConflict, err, "%s conflicts with an existing row (%s)", what, pqErr.Constraint)
	}
	return domain.WrapError(domain.KindInternal, err, "database error on %s", what)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
