package guard

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/session"
)

// A Renderer draws the pages a guard shows instead of the protected content.
type Renderer interface {
	// Loading renders the placeholder shown while the session is checked.
	Loading(w http.ResponseWriter, r *http.Request)
	// Denied renders the access denied page with a 403 status.
	Denied(w http.ResponseWriter, r *http.Request)
}

// RequireAuthenticated returns middleware applying Authenticated.
func RequireAuthenticated(store *session.Store, renderer Renderer) mux.MiddlewareFunc {
	return middleware("authenticated", renderer, func(r *http.Request) Decision {
		return Authenticated(store.Snapshot(), location(r))
	})
}

// RequireAdmin returns middleware applying Admin.
func RequireAdmin(store *session.Store, renderer Renderer) mux.MiddlewareFunc {
	return middleware("admin", renderer, func(r *http.Request) Decision {
		s := store.Snapshot()
		return Admin(s, s.IsAdmin(), location(r))
	})
}

func middleware(name string, renderer Renderer, decide func(*http.Request) Decision) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := decide(r)
			log.Debug(r.Context()).
				Str("guard", name).
				Str("path", r.URL.Path).
				Stringer("outcome", d.Outcome).
				Msg("guard: decision")

			switch d.Outcome {
			case Allow:
				next.ServeHTTP(w, r)
			case Loading:
				renderer.Loading(w, r)
			case Redirect:
				http.Redirect(w, r, d.Location, http.StatusFound)
			case Deny:
				renderer.Denied(w, r)
			}
		})
	}
}

func location(r *http.Request) string {
	return r.URL.RequestURI()
}
