package engine

import (
	"errors"
	"fmt"
)

// Error represents a failed engine operation.
//
// Payload-level failures (unsupported version, malformed document) are
// reported by the payload package's own error types; Error covers failures
// that involve the store.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID identifies the goal or trash item involved, when there is one.
	ID string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeGoalAlreadyExists indicates a goal id is already live.
	ErrCodeGoalAlreadyExists ErrorCode = "GOAL_ALREADY_EXISTS"

	// ErrCodeStoreTransaction indicates a store I/O or constraint failure.
	// The transaction was rolled back.
	ErrCodeStoreTransaction ErrorCode = "STORE_TRANSACTION"

	// ErrCodeNotFound indicates the goal or trash item does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ID != "" {
		msg = fmt.Sprintf("%s (id=%s)", msg, e.ID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsGoalAlreadyExists returns true if the error is a goal identity collision.
// Uses errors.As to handle wrapped errors.
func IsGoalAlreadyExists(err error) bool {
	return hasCode(err, ErrCodeGoalAlreadyExists)
}

// IsStoreFailure returns true if the error is a rolled-back store failure.
func IsStoreFailure(err error) bool {
	return hasCode(err, ErrCodeStoreTransaction)
}

// IsNotFound returns true if the error reports a missing goal or trash item.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewGoalAlreadyExistsError creates an Error for a live goal id collision.
func NewGoalAlreadyExistsError(goalID string) *Error {
	return &Error{
		Code:    ErrCodeGoalAlreadyExists,
		Message: "a live goal with this id already exists",
		ID:      goalID,
	}
}

// NewStoreError creates an Error wrapping a store failure during op.
func NewStoreError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStoreTransaction,
		Message: op + " failed and was rolled back",
		Err:     err,
	}
}

// NewNotFoundError creates an Error for a missing entity.
func NewNotFoundError(kind, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: kind + " not found",
		ID:      id,
	}
}
