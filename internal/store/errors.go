package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. Callers classify
// with errors.Is; implementations wrap the driver error after the sentinel.
var (
	// ErrNotFound means no row matched. For user-owned rows that includes
	// rows owned by someone else.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate means a unique constraint rejected the write.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity means the entity failed validation before any SQL ran.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrStoreUnavailable means the database could not be reached or the
	// connection failed mid-statement.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	ErrEmailExists    = fmt.Errorf("%w: email", ErrDuplicate)
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
)

// IsNotFoundError reports whether err is, or wraps, ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is, or wraps, ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError records which statement failed. Err is usually the mapped
// driver error, so sentinels stay reachable through Unwrap.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s %s: %s", e.Entity, e.Operation, e.Message)
	}
	return fmt.Sprintf("store: %s %s: %s: %v", e.Entity, e.Operation, e.Message, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError returns a StoreError for entity and operation.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
