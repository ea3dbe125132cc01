package http

import (
	"context"
	"errors"
	"net"
	"os"
)

// IsTimeout reports whether err was caused by a connect or read deadline.
// Refused connections, DNS failures and TLS errors are not timeouts.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ExecuteWithRetry calls fn, and calls it exactly once more if the first
// attempt timed out. The second attempt's result is returned as-is.
func ExecuteWithRetry[T any](fn func() (T, error)) (T, error) {
	return ExecuteWithRetryHook(fn, nil)
}

// ExecuteWithRetryHook is ExecuteWithRetry with a callback that receives the
// timeout error right before the second attempt.
func ExecuteWithRetryHook[T any](fn func() (T, error), onRetry func(err error)) (T, error) {
	result, err := fn()
	if !IsTimeout(err) {
		return result, err
	}
	if onRetry != nil {
		onRetry(err)
	}
	return fn()
}
