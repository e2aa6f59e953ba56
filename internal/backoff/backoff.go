// Package backoff holds the retry policy shared by the store and inference
// clients. A Policy is built once from configuration when the pipeline starts.
package backoff

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = 200 * time.Millisecond
	DefaultMaxDelay = 10 * time.Second
)

// Policy is a bounded exponential backoff.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 are treated as 1.
	Attempts uint
	// Delay is the base delay before the first retry; it doubles per attempt.
	Delay time.Duration
	// MaxDelay caps the delay between two attempts.
	MaxDelay time.Duration
}

// Default returns the policy used when no configuration is supplied.
func Default() Policy {
	return Policy{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		MaxDelay: DefaultMaxDelay,
	}
}

// None returns a policy that never retries.
func None() Policy {
	return Policy{Attempts: 1}
}

// Do runs fn until it succeeds, retryable reports false for its error, the
// attempts are exhausted, or ctx is done. The last error is returned as is so
// callers can still match it with errors.As.
func (p Policy) Do(ctx context.Context, logger *slog.Logger, op string, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retryable != nil && retryable(err)
		}),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}
	if logger != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			logger.Debug("retrying",
				slog.String("op", op),
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}))
	}

	return retry.Do(fn, opts...)
}
