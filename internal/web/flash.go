package web

import (
	"net/http"

	"github.com/gorilla/securecookie"

	"github.com/campus-foodmap/foodmap/internal/log"
)

const (
	flashCookieName   = "_foodmap_flash"
	flashCookieMaxAge = 60
)

// flashCookie carries a one-shot message across a redirect.
type flashCookie struct {
	sc     *securecookie.SecureCookie
	secure bool
}

func newFlashCookie(authKey []byte, secure bool) *flashCookie {
	sc := securecookie.New(authKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(flashCookieMaxAge)
	return &flashCookie{sc: sc, secure: secure}
}

// Set stores msg for the next page view.
func (f *flashCookie) Set(w http.ResponseWriter, r *http.Request, msg string) {
	encoded, err := f.sc.Encode(flashCookieName, msg)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("couldn't set flash cookie")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    encoded,
		MaxAge:   flashCookieMaxAge,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
}

// Pop returns the pending message, if any, and clears it.
func (f *flashCookie) Pop(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	var msg string
	if err := f.sc.Decode(flashCookieName, cookie.Value, &msg); err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("discarding malformed flash cookie")
		return ""
	}
	return msg
}
