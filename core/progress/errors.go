package progress

import (
	"errors"
	"fmt"

	"github.com/trezcool/maendeleo/core"
)

// InvalidStatusTransitionError is returned when a requested status change is
// not in the legal transition graph.
type InvalidStatusTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// InvalidTimestampError is returned when a record's timestamps violate the
// temporal ordering rules.
type InvalidTimestampError struct {
	Reason string
}

func (e *InvalidTimestampError) Error() string {
	return "invalid timestamp sequence: " + e.Reason
}

// ContentNotFoundError is returned when progress is recorded against a content
// item that does not exist.
type ContentNotFoundError struct {
	ContentType string
	ContentID   string
}

func (e *ContentNotFoundError) Error() string {
	return fmt.Sprintf("%s with id %s not found", e.ContentType, e.ContentID)
}

// DatabaseError wraps a storage failure with the operation that failed.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// QueueError wraps a deferred update failure at flush time.
type QueueError struct {
	Op  string
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("progress queue error during %s: %v", e.Op, e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }

// ConcurrencyError is returned when conflicting concurrent updates are detected.
type ConcurrencyError struct {
	Reason string
}

func (e *ConcurrencyError) Error() string {
	return "concurrent update conflict: " + e.Reason
}

// LastAccessedContentError is returned when the last-accessed hierarchy cannot
// be resolved, e.g. a parent progress record the cascade should have created
// is missing.
type LastAccessedContentError struct {
	Reason string
}

func (e *LastAccessedContentError) Error() string {
	return "failed to resolve last accessed content: " + e.Reason
}

// isKnown reports whether err already belongs to the progress error taxonomy,
// so wrap sites do not bury a domain error inside a DatabaseError.
func isKnown(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var (
		transitionErr *InvalidStatusTransitionError
		timestampErr  *InvalidTimestampError
		notFoundErr   *ContentNotFoundError
		dbErr         *DatabaseError
		queueErr      *QueueError
		conflictErr   *ConcurrencyError
		resolveErr    *LastAccessedContentError
		validationErr *core.ValidationError
	)
	return errors.As(err, &transitionErr) ||
		errors.As(err, &timestampErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &dbErr) ||
		errors.As(err, &queueErr) ||
		errors.As(err, &conflictErr) ||
		errors.As(err, &resolveErr) ||
		errors.As(err, &validationErr)
}

// wrapDBErr wraps a storage failure as a DatabaseError unless it is already a
// progress error.
func wrapDBErr(op string, err error) error {
	if err == nil || isKnown(err) {
		return err
	}
	return &DatabaseError{Op: op, Err: err}
}
