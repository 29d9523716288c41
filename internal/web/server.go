// Package web is the HTTP host of the food-map client: it routes page
// requests, applies the route guards and turns navigations requested by the
// API clients into redirects.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/campus-foodmap/foodmap/internal/authapi"
	"github.com/campus-foodmap/foodmap/internal/frontend"
	"github.com/campus-foodmap/foodmap/internal/guard"
	"github.com/campus-foodmap/foodmap/internal/httputil"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/navigation"
	"github.com/campus-foodmap/foodmap/internal/restaurants"
	"github.com/campus-foodmap/foodmap/internal/session"
	"github.com/campus-foodmap/foodmap/internal/telemetry/metrics"
	"github.com/campus-foodmap/foodmap/pkg/telemetry/requestid"
)

// Options configure a Server.
type Options struct {
	// LoginPath is the login entry point. Defaults to guard.DefaultLoginPath.
	LoginPath string
	// CookieSecret signs the CSRF and flash cookies.
	CookieSecret []byte
	// SecureCookies marks the cookies Secure.
	SecureCookies bool
}

// Server serves the web client's pages.
type Server struct {
	store       *session.Store
	auth        *authapi.Client
	restaurants *restaurants.Client
	renderer    *frontend.Renderer
	csrf        *csrfCookieValidation
	flash       *flashCookie
	loginPath   string

	handler http.Handler
}

// New creates a Server backed by store and the two API clients.
func New(store *session.Store, auth *authapi.Client, rc *restaurants.Client, opts Options) (*Server, error) {
	if store == nil || auth == nil || rc == nil {
		return nil, errors.New("web: store and clients are required")
	}
	if len(opts.CookieSecret) == 0 {
		return nil, errors.New("web: cookie secret is required")
	}
	if opts.LoginPath == "" {
		opts.LoginPath = guard.DefaultLoginPath
	}

	srv := &Server{
		store:       store,
		auth:        auth,
		restaurants: rc,
		csrf:        newCSRFCookieValidation(opts.CookieSecret, opts.SecureCookies),
		flash:       newFlashCookie(opts.CookieSecret, opts.SecureCookies),
		loginPath:   opts.LoginPath,
	}
	renderer, err := frontend.New(srv.page)
	if err != nil {
		return nil, err
	}
	srv.renderer = renderer

	var h http.Handler = srv.routes()
	h = srv.pageHandler(h)
	h = srv.sessionHandler(h)
	h = httputil.SetHeaders(httputil.HeadersSecurity)(h)
	h = log.AccessHandler(log.AccessLogger)(h)
	h = log.RemoteAddrHandler("ip")(h)
	h = log.RequestIDHandler("request-id")(h)
	h = log.NewHandler(log.Logger)(h)
	h = requestid.HTTPMiddleware()(h)
	h = metrics.HTTPMetricsHandler(h)
	h = otelhttp.NewHandler(h, "foodmap")
	srv.handler = h
	return srv, nil
}

// ServeHTTP implements http.Handler.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.handler.ServeHTTP(w, r)
}

func (srv *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(srv.renderer.NotFound)

	requireAuth := guard.RequireAuthenticated(srv.store, srv.renderer)
	requireAdmin := guard.RequireAdmin(srv.store, srv.renderer)

	r.HandleFunc("/healthz", httputil.HealthCheck)
	r.Path("/.foodmap/session").Methods(http.MethodGet).Handler(srv.handle(srv.sessionJSON))

	r.Path("/").Methods(http.MethodGet).Handler(srv.handle(srv.home))
	r.Path("/list").Methods(http.MethodGet).Handler(srv.handle(srv.list))
	r.Path("/popular").Methods(http.MethodGet).Handler(srv.handle(srv.popular))
	r.Path("/restaurant/{id}").Methods(http.MethodGet).Handler(srv.handle(srv.detail))

	r.Path("/login").Methods(http.MethodGet).Handler(srv.handle(srv.loginPage))
	r.Path("/login").Methods(http.MethodPost).Handler(srv.handle(srv.login))
	r.Path("/register").Methods(http.MethodGet).Handler(srv.handle(srv.registerPage))
	r.Path("/register").Methods(http.MethodPost).Handler(srv.handle(srv.register))
	r.Path("/logout").Methods(http.MethodPost).Handler(srv.handle(srv.logout))
	r.Path("/auth/{provider}").Methods(http.MethodGet).Handler(srv.handle(srv.oauthStart))
	r.Path("/auth/{provider}/callback").Methods(http.MethodGet).Handler(srv.handle(srv.oauthCallback))

	r.Path("/dashboard").Methods(http.MethodGet).Handler(requireAuth(srv.handle(srv.dashboard)))
	r.Path("/submit").Methods(http.MethodGet).Handler(requireAuth(srv.handle(srv.submitPage)))
	r.Path("/submit").Methods(http.MethodPost).Handler(requireAuth(srv.handle(srv.submit)))

	r.Path("/admin").Methods(http.MethodGet).Handler(requireAdmin(srv.handle(srv.admin)))
	r.Path("/admin/users/{id}/role").Methods(http.MethodPost).Handler(requireAdmin(srv.handle(srv.adminUpdateRole)))
	r.Path("/admin/users/{id}/delete").Methods(http.MethodPost).Handler(requireAdmin(srv.handle(srv.adminDelete)))
	r.Path("/submissions").Methods(http.MethodGet).Handler(requireAdmin(srv.handle(srv.submissions)))
	return r
}

// handle adapts an error returning handler. Navigations recorded while it
// ran take precedence over its response: a full reload re-checks the
// session before redirecting.
func (srv *Server) handle(fn httputil.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := navigation.NewRecorder(r)
		r = r.WithContext(navigation.NewContext(r.Context(), rec))

		tw := &trackingWriter{ResponseWriter: w}
		err := fn(tw, r)
		if target, mode, ok := rec.Target(); ok {
			log.Info(r.Context()).
				Str("target", target).
				Stringer("mode", mode).
				Bool("handled", tw.wrote).
				Msg("web: navigating")
			if mode == navigation.ModeReload {
				srv.store.Refresh(r.Context())
			}
			// a handler that already answered keeps its own response
			if !tw.wrote {
				rec.Redirect(w, r)
			}
			return
		}
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("web: handler failed")
			srv.renderer.Error(w, r, err)
		}
	})
}

// trackingWriter records whether a response has been started.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// sessionHandler attaches the Store to every request.
func (srv *Server) sessionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), srv.store)))
	})
}

type pageStateKey struct{}

type pageState struct {
	csrfToken string
	flash     string
}

// pageHandler issues the CSRF cookie, checks the token of state changing
// requests and picks up the pending flash message.
func (srv *Server) pageHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var st pageState
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			st.csrfToken = srv.csrf.EnsureCookieSet(w, r)
			st.flash = srv.flash.Pop(w, r)
		default:
			if err := srv.csrf.ValidateToken(r, r.PostFormValue(csrfFormField)); err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("web: rejected request without a valid CSRF token")
				srv.renderer.Error(w, r, httputil.NewError(http.StatusForbidden, errInvalidCSRF))
				return
			}
			st.csrfToken = srv.csrf.EnsureCookieSet(w, r)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pageStateKey{}, st)))
	})
}

// page builds the common template fields for r.
func (srv *Server) page(r *http.Request) frontend.Page {
	s := session.FromContext(r.Context()).Snapshot()
	st, _ := r.Context().Value(pageStateKey{}).(pageState)
	return frontend.Page{
		Path:      r.URL.Path,
		Session:   s,
		IsAdmin:   s.IsAdmin(),
		CSRFToken: st.csrfToken,
		Flash:     st.flash,
	}
}
