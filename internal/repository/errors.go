package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced to services so they can react to specific
// constraint violations without inspecting driver types.
var (
	// ErrDuplicateLoginID means the unique index on users.login_id rejected
	// an insert. The provisioning service treats this as a lost allocation
	// race and retries with a fresh snapshot.
	ErrDuplicateLoginID = errors.New("login id already exists")

	// ErrDuplicateEmail means the unique index on employees.email rejected an
	// insert.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicateRow covers any other unique-constraint violation.
	ErrDuplicateRow = errors.New("duplicate row")
)

const pqUniqueViolation = "23505"

// mapUniqueViolation converts a pq unique-violation into one of the sentinel
// errors above; any other error is returned unchanged.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_login_id_key":
		return ErrDuplicateLoginID
	case "employees_email_key":
		return ErrDuplicateEmail
	default:
		return ErrDuplicateRow
	}
}
