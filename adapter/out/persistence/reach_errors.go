package persistence

import (
	"database/sql"
	"errors"

	"reach_server/pkg/apperr"
)

// Common persistence errors
var (
	ErrNotFound = errors.New("not found")
)

// dbError maps driver errors onto API errors. sql.ErrNoRows and ErrNotFound
// become NOT_FOUND for resource; everything else is a DATABASE_ERROR.
func dbError(resource, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return apperr.NotFound(resource)
	}
	return apperr.DatabaseError(operation, err)
}

// requireAffected turns a zero-row write into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
