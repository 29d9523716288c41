package authapi

import (
	"net/http"
	"strings"
)

// Failure classifies the outcome of an identity service call.
type Failure int

const (
	// FailureNone is a successful response.
	FailureNone Failure = iota
	// FailureUnauthenticated is a 401 from an endpoint where it is a normal
	// outcome: not logged in yet, or bad credentials.
	FailureUnauthenticated
	// FailureSessionExpired is a 401 from an endpoint that assumed an
	// active session.
	FailureSessionExpired
	// FailureOther is any other failure: 4xx, 5xx or transport errors.
	FailureOther
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureUnauthenticated:
		return "unauthenticated"
	case FailureSessionExpired:
		return "session_expired"
	case FailureOther:
		return "other"
	}
	return "unknown"
}

// unauthenticatedPaths answer 401 as a normal outcome.
var unauthenticatedPaths = []string{pathMe, pathLogin, pathRegister}

// Classify classifies a response status for the endpoint at path.
func Classify(path string, status int) Failure {
	switch {
	case status < http.StatusBadRequest:
		return FailureNone
	case status != http.StatusUnauthorized:
		return FailureOther
	}
	for _, p := range unauthenticatedPaths {
		if strings.HasSuffix(path, p) {
			return FailureUnauthenticated
		}
	}
	return FailureSessionExpired
}
