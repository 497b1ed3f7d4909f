package core

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. It is always raised
// before any write reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NotFoundError reports a wallet or transaction that does not exist in the
// caller's profile scope. Rows owned by another profile are reported the
// same way so that their existence does not leak.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// StoreError wraps any failure inside an atomic unit. When it is returned
// the unit has been rolled back.
type StoreError struct {
	Op       string
	Err      error
	Conflict bool // unique constraint violated, e.g. a reused transaction id
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func IsConflict(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Conflict
}
