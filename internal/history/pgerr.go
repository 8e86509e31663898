package history

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const sqlStateUndefinedTable = "42P01"

// SQLState extracts the PostgreSQL error code from errors returned by either
// supported driver. It returns "" for other errors.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUndefinedTable reports whether err means a relation does not exist.
func IsUndefinedTable(err error) bool {
	return SQLState(err) == sqlStateUndefinedTable
}
