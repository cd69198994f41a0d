package queueentry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds returned by the transition engine. Handlers map these to HTTP
// statuses; none are retried internally.
var (
	// ErrValidation marks a missing required field or an invalid field
	// combination.
	ErrValidation = errors.New("queue entry validation failed")
	// ErrNotFound marks a missing entry or transition predecessor.
	ErrNotFound = errors.New("queue entry not found")
	// ErrStateViolation marks an operation against an entry in an
	// incompatible state (ended, voided, ambiguous undo chain).
	ErrStateViolation = errors.New("queue entry state violation")
	// ErrConcurrencyConflict marks a conditional update rejected because the
	// stored entry changed since it was read. Callers should reload and retry.
	ErrConcurrencyConflict = errors.New("queue entry was modified concurrently")
	// ErrDuplicate marks an admission that overlaps an existing active entry.
	ErrDuplicate = errors.New("duplicate queue entry")
	// ErrConfiguration marks an unresolvable policy or reference set. Fatal,
	// never retried.
	ErrConfiguration = errors.New("queue configuration error")
)

// DuplicateError carries the conflicting patient and queue identifiers for
// diagnostics. It unwraps to ErrDuplicate.
type DuplicateError struct {
	PatientID uuid.UUID
	QueueID   uuid.UUID
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("patient %s already has an overlapping active entry in queue %s", e.PatientID, e.QueueID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func stateViolationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrStateViolation}, args...)...)
}
