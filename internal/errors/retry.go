package errors

import (
	"context"
	"errors"
	"time"
)

// Backoff is a capped exponential retry schedule.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// StartupBackoff is used while waiting for dependencies to come up.
var StartupBackoff = Backoff{
	Attempts: 4,
	Initial:  200 * time.Millisecond,
	Max:      5 * time.Second,
}

// Delay returns the wait before retry number attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

// WithRetry calls fn up to b.Attempts times while it fails with a retryable
// AppError. Shutdown cleanup never goes through here.
func WithRetry(ctx context.Context, b Backoff, fn func() error) error {
	if fn == nil {
		return nil
	}

	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil || !IsRetryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryable reports whether err wraps an AppError marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}
