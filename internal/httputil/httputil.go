// Package httputil provides HTTP helpers shared by the foodmap web host and
// its API clients.
package httputil

import (
	"net/http"
	"net/url"
	"strings"
)

// HeadersSecurity are set on every page served by the web client.
var HeadersSecurity = map[string]string{
	"X-Frame-Options":        "SAMEORIGIN",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "same-origin",
}

// SetHeaders ensures that every response includes the given headers.
func SetHeaders(headers map[string]string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for key, val := range headers {
				w.Header().Set(key, val)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JoinURL appends elem to the path of base. base is not modified.
func JoinURL(base *url.URL, elem string) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(elem, "/")
	u.RawPath = ""
	return &u
}
