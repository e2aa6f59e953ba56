package store

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dgraph-io/badger/v4"
)

// Error is a store-reported failure with an HTTP-style status and a
// store-specific error code.
type Error struct {
	Code      int    // HTTP status code
	ErrorCode string // Store error code, e.g. "BatchTooLarge"
	Message   string // Human-readable message
	Err       error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d %s): %v", e.Message, e.Code, e.ErrorCode, e.Err)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Code, e.ErrorCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same ErrorCode.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.ErrorCode == t.ErrorCode
	}
	return false
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:      e.Code,
		ErrorCode: e.ErrorCode,
		Message:   msg,
		Err:       e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:      e.Code,
		ErrorCode: e.ErrorCode,
		Message:   e.Message,
		Err:       err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:      http.StatusNotFound,
		ErrorCode: "ResourceNotFound",
		Message:   "resource not found",
	}

	ErrInvalidInput = &Error{
		Code:      http.StatusBadRequest,
		ErrorCode: "InvalidInput",
		Message:   "invalid input",
	}

	ErrBatchTooLarge = &Error{
		Code:      http.StatusBadRequest,
		ErrorCode: "BatchTooLarge",
		Message:   "batch exceeds the operation limit",
	}

	ErrRequestTooLarge = &Error{
		Code:      http.StatusRequestEntityTooLarge,
		ErrorCode: "RequestBodyTooLarge",
		Message:   "batch exceeds the transaction size limit",
	}

	ErrConflict = &Error{
		Code:      http.StatusConflict,
		ErrorCode: "Conflict",
		Message:   "concurrent write conflict",
	}

	ErrServerBusy = &Error{
		Code:      http.StatusServiceUnavailable,
		ErrorCode: "ServerBusy",
		Message:   "store is not accepting writes",
	}

	ErrInternal = &Error{
		Code:      http.StatusInternalServerError,
		ErrorCode: "InternalError",
		Message:   "internal store error",
	}
)

// IsRetryable reports whether err is a transient store failure.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.ErrorCode {
	case ErrConflict.ErrorCode, ErrServerBusy.ErrorCode:
		return true
	default:
		return false
	}
}

// classify maps badger errors onto store errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound.WithCause(err)
	case errors.Is(err, badger.ErrConflict):
		return ErrConflict.WithCause(err)
	case errors.Is(err, badger.ErrBlockedWrites):
		return ErrServerBusy.WithCause(err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return ErrRequestTooLarge.WithCause(err)
	case errors.Is(err, badger.ErrEmptyKey):
		return ErrInvalidInput.WithCause(err)
	default:
		return ErrInternal.WithCause(err)
	}
}
