package httputil

import (
	"errors"
	"net/http"

	"github.com/campus-foodmap/foodmap/pkg/telemetry/requestid"
)

// HTTPError contains an HTTP status code and wrapped error.
type HTTPError struct {
	// HTTP status codes as registered with IANA.
	Status int
	// Err is the wrapped error.
	Err error
	// The request ID.
	RequestID string
}

// NewError returns an error that contains a HTTP status and error.
func NewError(status int, err error) error {
	return &HTTPError{Status: status, Err: err}
}

// Error implements the `error` interface.
func (e *HTTPError) Error() string {
	return http.StatusText(e.Status) + ": " + e.Err.Error()
}

// Unwrap implements the `error` Unwrap interface.
func (e *HTTPError) Unwrap() error { return e.Err }

// AsHTTPError converts err into an *HTTPError, defaulting to a 500.
func AsHTTPError(err error) *HTTPError {
	var e *HTTPError
	if errors.As(err, &e) {
		return e
	}
	return &HTTPError{Status: http.StatusInternalServerError, Err: err}
}

// ErrorResponse replies to the request with the specified error message and HTTP code
// as JSON. It does not otherwise end the request; the caller should ensure no further
// writes are done to w.
func (e *HTTPError) ErrorResponse(w http.ResponseWriter, r *http.Request) {
	reqID := e.RequestID
	if reqID == "" {
		reqID = requestid.FromContext(r.Context())
	}
	RenderJSON(w, e.Status, struct {
		Status    int
		Error     string
		RequestID string `json:",omitempty"`
	}{
		Status:    e.Status,
		Error:     e.Error(),
		RequestID: reqID,
	})
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json"
}
