package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// API and service errors
	ErrUpstream           = fmt.Errorf("upstream returned bad response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrFetch              = fmt.Errorf("media download failed")

	// Sync outcomes reported to callers without being faults
	ErrNoResults = fmt.Errorf("no images found")
	ErrNoChange  = fmt.Errorf("no new images")

	// Persistence errors
	ErrAlbumNotFound = fmt.Errorf("album not found")
	ErrLocked        = fmt.Errorf("another sync holds the lock")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// AuthError reports a failed token exchange or an exhausted re-authentication budget.
//
// Status and Body are zero when no HTTP response was involved.
type AuthError struct {
	Status int
	Body   string
	Reason string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", ErrAuthFailed, e.Reason)
	}
	return fmt.Sprintf("%v: %s (status %d, body: %s)", ErrAuthFailed, e.Reason, e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return ErrAuthFailed }

// UpstreamError is a terminal error response from the search API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v: status %d, body: %s", ErrUpstream, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// FetchError wraps the transport or stream failure of a single media download.
type FetchError struct {
	ExternalID int64
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: item %d (%s): %v", ErrFetch, e.ExternalID, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// IsRecoverable reports whether err is a sync outcome callers should surface as a message rather than a failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoResults) || errors.Is(err, ErrNoChange)
}
