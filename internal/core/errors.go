package core

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for the failure taxonomy. Services wrap these with context
// via fmt.Errorf("...: %w", Err...) so adapters can map them with errors.Is.
var (
	// ErrNotFound — a referenced row does not exist. No side effect occurred.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized — caller's role/station does not permit the operation.
	ErrUnauthorized = errors.New("not authorized")
	// ErrValidation — missing or malformed input, or a business invariant
	// (stock bounds, journal balance) would be violated.
	ErrValidation = errors.New("validation failed")
	// ErrConflict — the operation is not valid in the row's current state
	// (illegal status transition, duplicate idempotency key).
	ErrConflict = errors.New("conflict")
)

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
