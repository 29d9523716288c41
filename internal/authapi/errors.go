package authapi

import (
	"errors"
	"fmt"
	"net/http"
)

// predefined errors
var (
	ErrUnknownProvider = errors.New("authapi: unknown oauth provider")
	ErrMissingCode     = errors.New("authapi: missing oauth code")
	ErrMissingUserID   = errors.New("authapi: missing user id")
)

// An APIError is a non-2xx response from the identity service.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Path is the endpoint path relative to the base URL, e.g. "/me".
	Path string
	// Message is the server supplied message, if any.
	Message string
}

// Error implements the `error` interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authapi: %s: %d %s: %s", e.Path, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("authapi: %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var e *APIError
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Message returns the server supplied message of an *APIError in err's chain.
func Message(err error) string {
	var e *APIError
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 from the identity service.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
