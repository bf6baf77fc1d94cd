// errors.go holds the sentinel errors shared by the console repositories and the
// translation of PostgreSQL error codes into them.
package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when an update-by-id matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrActiveUpdateConflict is returned when the store rejects a second active update.
	ErrActiveUpdateConflict = errors.New("another update is already active")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// isUniqueViolation reports whether err is a unique violation on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

// isInvalidID reports whether err is PostgreSQL rejecting an id that does not
// parse as the column type, such as a malformed UUID.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}
