package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy bounds Retry
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy gives a dependency about ten seconds to come up
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, runs out of
// attempts or ctx ends. The delay doubles after each failure.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	delay := policy.InitialDelay
	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, policy.MaxDelay)
	}
	return fmt.Errorf("gave up after %d attempts: %w", policy.MaxAttempts, err)
}
