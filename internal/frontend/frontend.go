// Package frontend renders the HTML pages of the web client.
package frontend

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/campus-foodmap/foodmap/internal/httputil"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/session"
	"github.com/campus-foodmap/foodmap/internal/version"
	"github.com/campus-foodmap/foodmap/pkg/telemetry/requestid"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageHome        = "home"
	PageList        = "list"
	PageDetail      = "detail"
	PagePopular     = "popular"
	PageLogin       = "login"
	PageRegister    = "register"
	PageDashboard   = "dashboard"
	PageSubmit      = "submit"
	PageAdmin       = "admin"
	PageSubmissions = "submissions"
	PageLoading     = "loading"
	PageDenied      = "denied"
	PageNotFound    = "notfound"
	PageError       = "error"
)

// LoadingRefresh is how often the loading page reloads itself.
const LoadingRefresh = time.Second

// Page is the data every template receives.
type Page struct {
	Title     string
	Path      string
	Session   session.Session
	IsAdmin   bool
	CSRFToken string
	Flash     string
	// Data is the page specific payload.
	Data any
}

// A Renderer executes the page templates.
type Renderer struct {
	pages  map[string]*template.Template
	layout func(r *http.Request) Page
}

// New parses the embedded templates. layout supplies the common Page fields
// for a request; it may be nil.
func New(layout func(r *http.Request) Page) (*Renderer, error) {
	funcs := template.FuncMap{
		"version": version.FullVersion,
		"join":    strings.Join,
		"date":    formatDate,
	}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		page := strings.TrimSuffix(path.Base(name), ".html")
		if page == "layout" {
			continue
		}
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("frontend: parse %s: %w", name, err)
		}
		pages[page] = t
	}
	if layout == nil {
		layout = func(r *http.Request) Page { return Page{Path: r.URL.Path} }
	}
	return &Renderer{pages: pages, layout: layout}, nil
}

// Base returns the common Page fields for r.
func (rd *Renderer) Base(r *http.Request) Page {
	return rd.layout(r)
}

// Render writes the named page with the given status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	t, ok := rd.pages[name]
	if !ok {
		log.Error().Str("page", name).Msg("frontend: unknown page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("frontend: render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Loading renders the placeholder shown while the session is checked. The
// page reloads itself until the check finishes.
func (rd *Renderer) Loading(w http.ResponseWriter, r *http.Request) {
	p := rd.Base(r)
	p.Title = "확인 중"
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", fmt.Sprintf("%d", int(LoadingRefresh.Seconds())))
	rd.Render(w, r, http.StatusOK, PageLoading, p)
}

// Denied renders the access denied page.
func (rd *Renderer) Denied(w http.ResponseWriter, r *http.Request) {
	p := rd.Base(r)
	p.Title = "접근 권한 없음"
	rd.Render(w, r, http.StatusForbidden, PageDenied, p)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	p := rd.Base(r)
	p.Title = "페이지를 찾을 수 없습니다"
	rd.Render(w, r, http.StatusNotFound, PageNotFound, p)
}

// ErrorData is the payload of the error page.
type ErrorData struct {
	Status     int
	StatusText string
	Error      string
	RequestID  string
}

// Error renders err as an HTML page, or as JSON when the client asked for
// it.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	e := httputil.AsHTTPError(err)
	if httputil.WantsJSON(r) {
		e.ErrorResponse(w, r)
		return
	}
	if e.Status == http.StatusNotFound {
		rd.NotFound(w, r)
		return
	}
	p := rd.Base(r)
	p.Title = http.StatusText(e.Status)
	data := ErrorData{
		Status:     e.Status,
		StatusText: http.StatusText(e.Status),
		RequestID:  e.RequestID,
	}
	if data.RequestID == "" {
		data.RequestID = requestid.FromContext(r.Context())
	}
	if e.Err != nil {
		data.Error = e.Err.Error()
	}
	p.Data = data
	rd.Render(w, r, e.Status, PageError, p)
}

func formatDate(s string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006. 1. 2.")
		}
	}
	return s
}
