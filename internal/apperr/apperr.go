// Package apperr defines the typed failures returned by the catalog,
// membership, comment and access services. Only the HTTP layer turns
// them into status codes.
package apperr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a referenced entity id does not exist.
	ErrNotFound = stderrors.New("not found")

	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = stderrors.New("validation failed")

	// ErrConflict is returned when creating an entity that already exists by its natural key.
	ErrConflict = stderrors.New("already exists")

	// ErrUpstreamUnavailable is returned when the external metadata service fails.
	ErrUpstreamUnavailable = stderrors.New("upstream unavailable")
)

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(entity string, id interface{}) error {
	return errors.Wrapf(ErrNotFound, "%s %v", entity, id)
}

// Validation wraps ErrValidation with a reason.
func Validation(format string, args ...interface{}) error {
	return errors.Wrap(ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps ErrUpstreamUnavailable around the cause.
func Upstream(cause error, op string) error {
	return &upstreamError{op: op, cause: cause}
}

type upstreamError struct {
	op    string
	cause error
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrUpstreamUnavailable, e.cause)
}

func (e *upstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

func (e *upstreamError) Unwrap() error { return e.cause }

// ConflictError reports the id of the entity that already holds the natural key.
type ConflictError struct {
	Entity     string
	ExistingID uint
}

// Conflict returns a ConflictError for entity.
func Conflict(entity string, existingID uint) *ConflictError {
	return &ConflictError{Entity: entity, ExistingID: existingID}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Entity, e.ExistingID, ErrConflict)
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// AsConflict extracts a ConflictError from err's chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}

	return nil, false
}
