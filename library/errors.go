package library

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUniqueConstraint is returned when a borrower insert reuses an existing email.
	ErrUniqueConstraint = errors.New("unique constraint violation")
	// ErrReference is returned when a checkout names a book or borrower that does not exist,
	// and, with strict references enabled, when deleting a still referenced book or borrower.
	ErrReference = errors.New("reference error")
	// ErrBookUnavailable is returned when checking out a book that is already checked out.
	ErrBookUnavailable = errors.New("book unavailable")
	// ErrNotFound is returned for unknown ids and for returning an already closed checkout.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable wraps every I/O level failure of the underlying database.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or blank required field(s): " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
