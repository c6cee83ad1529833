package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuth marks authentication failures. They are never retried; the caller
// cannot succeed without a fresh credential.
var ErrAuth = errors.New("authentication failed")

// StatusError carries the HTTP status of a failed outbound call so the retry
// policy can classify it. Adapters normalize provider errors into this type.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("http %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("http %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return ErrAuth
	}
	return e.Err
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsRetryable reports whether err is worth retrying: throttling, server
// errors, and transport-level failures. Auth and other client errors are not.
func IsRetryable(err error) bool {
	if err == nil || IsAuth(err) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// No status attached: connection reset, timeout, DNS failure.
	return true
}
