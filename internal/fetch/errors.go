package fetch

import (
	"errors"
	"fmt"
)

// Common errors returned by the content fetcher.
var (
	// ErrAccessDenied indicates paywalled content (HTTP 401/403 or a
	// paywall marker in the response body). Expected for subscription
	// content; drives the fallback chain rather than failing the request.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates the resource does not exist (HTTP 404).
	// Terminal for the current access layer.
	ErrNotFound = errors.New("not found")

	// ErrTransient indicates a server or network fault (HTTP 5xx,
	// timeout). Retryable by the caller with a bounded retry count.
	ErrTransient = errors.New("transient fetch error")
)

// StatusError carries the HTTP status behind a classified fetch failure.
type StatusError struct {
	URL        string
	StatusCode int
	Kind       error // one of the sentinel errors above
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d (%v)", e.URL, e.StatusCode, e.Kind)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// IsAccessDenied returns true if the error indicates paywalled content.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient returns true if the error is worth a bounded retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
