package proxy

import "errors"

// Common errors returned by the session manager.
var (
	// ErrNotConfigured indicates no institution proxy is configured.
	ErrNotConfigured = errors.New("no proxy institution configured")

	// ErrNoSession indicates no valid session exists and interactive login
	// was not permitted.
	ErrNoSession = errors.New("no valid proxy session")

	// ErrAuthTimeout indicates the interactive login flow exceeded its
	// bounded wait.
	ErrAuthTimeout = errors.New("proxy authentication timed out")

	// ErrAuthFailed indicates login completed but the session never passed
	// the validity probe.
	ErrAuthFailed = errors.New("proxy authentication failed")
)

// IsAuthError returns true for either authentication failure mode.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthTimeout) || errors.Is(err, ErrAuthFailed)
}
