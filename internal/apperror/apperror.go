// Package apperror defines the domain error taxonomy shared by all layers.
//
// Services return these errors; the HTTP layer maps them to status codes in
// exactly one place (handler/response.go). Sentinels are checked with
// errors.Is, the wrapper struct is extracted with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrConfig        = errors.New("configuration error")
	ErrInvalidState  = errors.New("invalid authorization state")
	ErrExchange      = errors.New("authorization exchange failed")
	ErrNotConnected  = errors.New("calendar not connected")
	ErrProvider      = errors.New("calendar provider call failed")
	ErrNoMeetingLink = errors.New("meeting link extraction failed")
)

// AppError carries a sentinel plus a human-readable message.
// The message is safe to show to an API caller; the wrapped sentinel drives
// status-code mapping.
type AppError struct {
	Err     error  // sentinel from the list above
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Configuration indicates a required secret or client setting is absent.
// Never retried, surfaced as a server-side failure.
func Configuration(message string) *AppError {
	return &AppError{
		Err:     ErrConfig,
		Message: message,
	}
}

// InvalidState indicates the OAuth callback state was missing, malformed,
// or failed signature verification. No code exchange is attempted.
func InvalidState(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidState,
		Message: message,
	}
}

// ExchangeFailed indicates the provider rejected the authorization-code
// exchange. No credential fields are written when this is returned.
func ExchangeFailed(err error) *AppError {
	return &AppError{
		Err:     ErrExchange,
		Message: fmt.Sprintf("authorization code exchange failed: %v", err),
	}
}

// NotConnected indicates the employer has no usable calendar credentials.
// Interview operations downgrade this to a warning plus a connect URL.
func NotConnected(employerID string) *AppError {
	return &AppError{
		Err:     ErrNotConnected,
		Message: fmt.Sprintf("employer %s has no calendar connection", employerID),
	}
}

// ProviderCall indicates a network, quota, or permission failure while
// talking to the calendar provider.
func ProviderCall(err error) *AppError {
	return &AppError{
		Err:     ErrProvider,
		Message: fmt.Sprintf("calendar provider call failed: %v", err),
	}
}

// NoMeetingLink indicates the provider created the event but returned no
// join link in any known field. This is a provider-side inconsistency, not
// a caller error.
func NoMeetingLink(eventID string) *AppError {
	return &AppError{
		Err:     ErrNoMeetingLink,
		Message: fmt.Sprintf("event %s was created but carries no video link", eventID),
	}
}
