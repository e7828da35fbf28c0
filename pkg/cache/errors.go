package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a Redis round trip that failed below the protocol level.
var ErrNetwork = errors.New("network error")

// RetryableError marks a backend failure worth another attempt. Only
// transport errors are wrapped; a Redis reply error is final.
type RetryableError struct{ Err error }

// Retryable wraps err, or returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps is a [RetryableError].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryAttempts bounds RetryWithBackoff; the delay starts at retryDelay and
// doubles after each failure.
const (
	retryAttempts = 3
	retryDelay    = time.Second
)

// RetryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// or has failed retryAttempts times. The commit stream and the Redis
// artifact cache both go through it.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == retryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}
