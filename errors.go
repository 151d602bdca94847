package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects login or registration input.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired is returned when the session could not be renewed and was torn down.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork is returned when a backend call produced no HTTP response.
	ErrNetwork = errors.New("network error")
	// ErrMalformedCallback is returned when a provider redirect carries unusable tokens.
	ErrMalformedCallback = errors.New("malformed provider callback")
	// ErrValidation is returned (wrapped in a FieldError) when input fails client-side checks.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned by the gateway when no access token is stored.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionNotReady is returned by the gateway before bootstrap resolved the status.
	ErrSessionNotReady = errors.New("session not ready")
	// ErrAccountExists is returned when registration collides with an existing account.
	ErrAccountExists = errors.New("account already exists")
	// ErrBackend is returned for backend failures that are neither rejections nor transport errors.
	ErrBackend = errors.New("backend error")
	// ErrInvalidResponse is returned when the backend issued a token that is undecodable or already expired.
	ErrInvalidResponse = errors.New("invalid backend response")
	// ErrStorage is returned when the credential store could not persist a new session.
	ErrStorage = errors.New("credential storage failure")
	// ErrControllerClosed is returned by operations invoked after Close.
	ErrControllerClosed = errors.New("controller closed")
)

// FieldError reports the first input field that failed client-side validation.
//
// errors.Is(err, ErrValidation) holds for every FieldError.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }
