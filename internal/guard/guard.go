// Package guard decides whether a protected page may be shown for a given
// session, and provides the HTTP middleware that applies those decisions.
package guard

import (
	"net/url"
	"strings"

	"github.com/campus-foodmap/foodmap/internal/session"
)

// DefaultLoginPath is the login entry point.
const DefaultLoginPath = "/login"

// Outcome is what a guard wants done with a request.
type Outcome int

const (
	// Allow shows the protected content.
	Allow Outcome = iota
	// Loading shows a placeholder while the session is being checked.
	Loading
	// Redirect replaces the current location with Decision.Location.
	Redirect
	// Deny shows the access denied page in place, without navigating.
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	}
	return "unknown"
}

// Decision is the result of a guard.
type Decision struct {
	Outcome Outcome
	// Location is set for Redirect.
	Location string
}

// Authenticated admits any logged in user.
func Authenticated(s session.Session, location string) Decision {
	switch {
	case s.IsLoading:
		return Decision{Outcome: Loading}
	case s.IsAuthenticated:
		return Decision{Outcome: Allow}
	default:
		return Decision{Outcome: Redirect, Location: LoginURL(DefaultLoginPath, location)}
	}
}

// Admin admits only users whose role is admin. Logged in users without the
// role are denied in place.
func Admin(s session.Session, isAdmin bool, location string) Decision {
	switch {
	case s.IsLoading:
		return Decision{Outcome: Loading}
	case !s.IsAuthenticated:
		return Decision{Outcome: Redirect, Location: LoginURL(DefaultLoginPath, location)}
	case !isAdmin:
		return Decision{Outcome: Deny}
	default:
		return Decision{Outcome: Allow}
	}
}

// LoginURL returns loginPath with a from parameter naming the page the
// user asked for.
func LoginURL(loginPath, from string) string {
	from = ReturnTo(from)
	if from == "/" || from == loginPath {
		return loginPath
	}
	return loginPath + "?" + url.Values{"from": {from}}.Encode()
}

// ReturnTo sanitises a from parameter so it can only name a page on this
// host. Anything else yields "/".
func ReturnTo(from string) string {
	if from == "" || strings.ContainsAny(from, "\\\r\n\t") {
		return "/"
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" || u.User != nil {
		return "/"
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	out := u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}
