package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for well-known failure conditions that cross package
// boundaries.  Callers should use [errors.Is] to match these.
var (
	// ErrUnauthorized indicates missing, expired, or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the session is valid but lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for duplicate or otherwise conflicting writes.
	ErrConflict = errors.New("conflict")

	// ErrInvalidToken means a session token could not be decoded.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrNotLoggedIn is returned by operations that need a session when
	// there is none.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrKeyExists is returned when an environment key is added twice.
	ErrKeyExists = errors.New("key already exists")

	// ErrKeyNotFound is returned when editing an environment key that is
	// not in the set.
	ErrKeyNotFound = errors.New("key not found")

	// ErrApplicationPending is returned for edits that require an approved
	// application.
	ErrApplicationPending = errors.New("application is pending approval")

	// ErrInvalidInput wraps client-side validation failures. Nothing is sent
	// to the server when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMutationInFlight is returned when the same mutation is already
	// running for the same resource.
	ErrMutationInFlight = errors.New("mutation already in progress")
)

// APIError is a non-2xx response from the injunweb API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (%d)", e.Op, msg, e.StatusCode)
	}
	return fmt.Sprintf("%s (%d)", msg, e.StatusCode)
}

// Unwrap maps the status code onto the matching sentinel error.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// IsAuthFailure reports whether err is an authentication failure, the one
// error class handled globally rather than by the initiating command.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
