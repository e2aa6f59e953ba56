package inference

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for inference service calls.
var (
	ErrNotFound    = errors.New("inference: not found")
	ErrRateLimited = errors.New("inference: rate limited by server")
	ErrBadRequest  = errors.New("inference: bad request")
	ErrServer      = errors.New("inference: server error")
)

// errWaitDeadline is returned when the rate limiter refuses a request because
// its token would only be available after the context deadline. The context
// itself may not be done yet when this happens.
var errWaitDeadline = fmt.Errorf("rate limit wait would exceed deadline: %w", context.DeadlineExceeded)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "upload", "submit", "status", "download"
	Scope string
	Err   error
}

func (e *Error) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("inference %s [%s]: %v", e.Op, e.Scope, e.Err)
	}
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, scope string, err error) error {
	return &Error{Op: op, Scope: scope, Err: err}
}

// retryable reports whether a failed call may succeed if repeated:
// rate limiting, server errors, and transport failures.
func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) {
		return true
	}
	var te *transportError
	return errors.As(err, &te)
}

// transportError marks a request that never produced an HTTP response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "execute request: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }
