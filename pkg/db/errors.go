package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports a unique constraint failure from postgres (pgx or
// lib/pq) or sqlite. A non-empty constraint must appear in the constraint
// name or the driver message.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		return pg.SQLState == sqlStateUniqueViolation &&
			(constraint == "" || pg.Constraint == constraint || strings.Contains(pg.Message, constraint))
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}
