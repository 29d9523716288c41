// Package session holds the client's view of who is logged in. A Store is
// the single writer of that state; guards and pages read snapshots of it.
package session

import (
	"context"

	"github.com/campus-foodmap/foodmap/internal/authapi"
)

// State is the coarse state of a Session.
type State int

const (
	// StateUnknown is the state before the first session check completes.
	StateUnknown State = iota
	// StateAnonymous means nobody is logged in.
	StateAnonymous
	// StateAuthenticated means a user is logged in.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "invalid"
}

// Session is a snapshot of the authentication state.
//
// User != nil if and only if IsAuthenticated.
type Session struct {
	User            *authapi.User `json:"user"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	IsLoading       bool          `json:"isLoading"`
}

// State returns the coarse state of the snapshot.
func (s Session) State() State {
	switch {
	case s.IsAuthenticated:
		return StateAuthenticated
	case s.IsLoading:
		return StateUnknown
	default:
		return StateAnonymous
	}
}

// IsAdmin reports whether the snapshot's user has the admin role.
func (s Session) IsAdmin() bool {
	return s.User.IsAdmin()
}

// Result is the outcome of Login and Register. Message is suitable for
// display next to the form.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// A Gateway performs the identity calls the Store depends on.
// *authapi.Client implements it.
type Gateway interface {
	CurrentUser(ctx context.Context) (*authapi.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*authapi.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*authapi.AuthResponse, error)
	Logout(ctx context.Context) error
}
