package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a Redis call that failed on the connection rather than on
// the command: dial and read timeouts, refused or reset connections.
var ErrNetwork = errors.New("network error")

// RetryableError marks a failed cache call worth repeating.
type RetryableError struct{ Err error }

// Retryable wraps err so RetryWithBackoff repeats the call. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err, or anything it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

const retryAttempts = 3

// retryDelay is the pause after the first failed attempt. Each further pause
// doubles it.
var retryDelay = 200 * time.Millisecond

// RetryWithBackoff calls fn until it succeeds, returns an error not marked
// Retryable, or retryAttempts calls have failed. The last error is returned.
// Cancelling ctx stops the wait between attempts.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	wait := retryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}
