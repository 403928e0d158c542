// ABOUTME: Error taxonomy for remote service failures.
// ABOUTME: Classifies failures into retryable, permanent, not-found, and auth.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthExpired means the credential could not be refreshed. Surfaced
	// to the user as "sign in again"; never retried by the queues.
	ErrAuthExpired = errors.New("authentication expired")
)

// Error is a non-2xx response from the remote service.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsPermanent reports whether err is a client error that retrying cannot
// fix: any 4xx other than 401 (auth, handled separately) and 404.
func IsPermanent(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	s := apiErr.StatusCode
	return s >= 400 && s < 500 && s != http.StatusUnauthorized && s != http.StatusNotFound
}

// Retryable reports whether a failed attempt should be re-queued.
// Transport failures (offline, timeouts) and 5xx responses are retryable;
// auth expiry and permanent client errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthExpired) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// Anything without a status code is a transport-level failure:
	// connection refused, DNS, timeout. All retryable.
	return true
}
