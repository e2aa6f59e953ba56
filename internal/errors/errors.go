// Package errors provides coded domain errors for the reconciliation pipeline.
//
// Usage:
//
//	// In the pipeline - return typed errors
//	if len(partial) == 0 {
//	    return errors.InsufficientDataf("scope %s has no partial titles", scope)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrImputationTimeout) {
//	    log.Warn("inference timed out, skipping genre")
//	}
//
//	// Or switch on the Code directly
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeAllZero:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the pipeline.
const (
	CodeInsufficientData      Code = "INSUFFICIENT_DATA"
	CodeAllZero               Code = "ALL_ZERO"
	CodeBatchCapacityExceeded Code = "BATCH_CAPACITY_EXCEEDED"
	CodeImputationTimeout     Code = "IMPUTATION_TIMEOUT"
	CodeInferenceFailed       Code = "INFERENCE_FAILED"
	CodeStoreWrite            Code = "STORE_WRITE"
	CodeValidation            Code = "VALIDATION"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInternal              Code = "INTERNAL"
)

// Fatal reports whether an error with this code must abort the whole run,
// even when it surfaces in a genre pass.
func (c Code) Fatal() bool {
	switch c {
	case CodeImputationTimeout, CodeInferenceFailed:
		return false
	default:
		return true
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrInsufficientData      = &Error{Code: CodeInsufficientData, Message: "insufficient data"}
	ErrAllZero               = &Error{Code: CodeAllZero, Message: "all TTB values are zero"}
	ErrBatchCapacityExceeded = &Error{Code: CodeBatchCapacityExceeded, Message: "batch capacity exceeded"}
	ErrImputationTimeout     = &Error{Code: CodeImputationTimeout, Message: "imputation timed out"}
	ErrInferenceFailed       = &Error{Code: CodeInferenceFailed, Message: "inference failed"}
	ErrStoreWrite            = &Error{Code: CodeStoreWrite, Message: "store write failed"}
	ErrValidation            = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound              = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal              = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Constructor functions for creating errors with custom messages.

// InsufficientData creates an insufficient data error.
func InsufficientData(msg string) *Error {
	return &Error{Code: CodeInsufficientData, Message: msg}
}

// InsufficientDataf creates an insufficient data error with formatted message.
func InsufficientDataf(format string, args ...any) *Error {
	return &Error{Code: CodeInsufficientData, Message: fmt.Sprintf(format, args...)}
}

// AllZerof creates an all-zero error with formatted message.
func AllZerof(format string, args ...any) *Error {
	return &Error{Code: CodeAllZero, Message: fmt.Sprintf(format, args...)}
}

// BatchCapacityExceededf creates a batch capacity error with formatted message.
func BatchCapacityExceededf(format string, args ...any) *Error {
	return &Error{Code: CodeBatchCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

// ImputationTimeoutf creates an imputation timeout error with formatted message.
func ImputationTimeoutf(format string, args ...any) *Error {
	return &Error{Code: CodeImputationTimeout, Message: fmt.Sprintf(format, args...)}
}

// InferenceFailedf creates an inference failure with formatted message.
func InferenceFailedf(format string, args ...any) *Error {
	return &Error{Code: CodeInferenceFailed, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
