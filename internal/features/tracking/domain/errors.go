package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialMissing means no API key is configured for the provider.
	// The coordinator fails fast on it before any network call.
	ErrCredentialMissing = errors.New("provider API key is missing")
	// ErrAuthFailed means the provider rejected the API key. Batch-fatal.
	ErrAuthFailed = errors.New("provider API key is invalid or missing")
	// ErrQuotaExceeded means the provider plan or quota ran out. Batch-fatal.
	ErrQuotaExceeded = errors.New("provider quota exceeded or plan expired")
	// ErrNotRegistered means the tracking number is unknown to the provider.
	ErrNotRegistered = errors.New("tracking number not registered with provider")
	// ErrInvalidData means the payload envelope was malformed or unexpected.
	ErrInvalidData = errors.New("invalid provider payload")
	// ErrParcelNotFound means no parcel exists for the given identifier.
	ErrParcelNotFound = errors.New("parcel not found")
)

// APIError carries a provider error message and its raw envelope code.
// Auth and quota failures are wrapped sentinels instead so callers can
// detect the two batch-fatal classes with errors.Is.
type APIError struct {
	// Code is the provider envelope code as a string ("4102", "A0400", ...).
	Code string
	// Message is the provider-supplied or synthesized description.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("provider error: %s", e.Message)
	}
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}
