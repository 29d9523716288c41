// Package navigation models the host that displays pages to the user: it knows
// the current location and can move the user somewhere else.
package navigation

import (
	"context"
	"net/http"
	"sync"
)

// Mode selects how a navigation happens.
type Mode int

const (
	// ModeReplace is a client-side redirect that replaces the current
	// history entry.
	ModeReplace Mode = iota
	// ModeReload is a full navigation: the application is loaded again at
	// the target, which re-runs the session check.
	ModeReload
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeReload:
		return "reload"
	}
	return "unknown"
}

// A Navigator reads the current location and moves to another one.
type Navigator interface {
	// Location returns the path currently displayed.
	Location() string
	// Navigate moves to path.
	Navigate(path string, mode Mode)
}

type navigatorKey struct{}

// NewContext returns a context carrying nav.
func NewContext(ctx context.Context, nav Navigator) context.Context {
	return context.WithValue(ctx, navigatorKey{}, nav)
}

// FromContext returns the navigator stored in ctx, if any.
func FromContext(ctx context.Context) (Navigator, bool) {
	nav, ok := ctx.Value(navigatorKey{}).(Navigator)
	return nav, ok && nav != nil
}

// A Recorder is the Navigator of a single HTTP request. Navigations are
// recorded and turned into a redirect once the handler has finished.
type Recorder struct {
	location string

	mu     sync.Mutex
	target string
	mode   Mode
	set    bool
}

// NewRecorder creates a Recorder whose location is the request path.
func NewRecorder(r *http.Request) *Recorder {
	return &Recorder{location: r.URL.Path}
}

// Location implements Navigator.
func (rec *Recorder) Location() string {
	return rec.location
}

// Navigate implements Navigator. The last navigation wins.
func (rec *Recorder) Navigate(path string, mode Mode) {
	rec.mu.Lock()
	rec.target, rec.mode, rec.set = path, mode, true
	rec.mu.Unlock()
}

// Target returns the recorded navigation, if any.
func (rec *Recorder) Target() (path string, mode Mode, ok bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.target, rec.mode, rec.set
}

// Redirect writes the recorded navigation as a 303 See Other and reports
// whether it did.
func (rec *Recorder) Redirect(w http.ResponseWriter, r *http.Request) bool {
	target, _, ok := rec.Target()
	if !ok {
		return false
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return true
}
