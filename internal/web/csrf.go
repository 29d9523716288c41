package web

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/campus-foodmap/foodmap/internal/log"
)

const (
	csrfCookieName   = "_foodmap_csrf"
	csrfFormField    = "csrf_token"
	csrfTokenLength  = 32
	csrfCookieMaxAge = 12 * 3600
)

var (
	errNoCSRFCookie = errors.New("no CSRF cookie")
	errInvalidCSRF  = errors.New("invalid CSRF token")
)

type csrfCookieValidation struct {
	sc     *securecookie.SecureCookie
	name   string
	secure bool
}

func newCSRFCookieValidation(authKey []byte, secure bool) *csrfCookieValidation {
	sc := securecookie.New(authKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(csrfCookieMaxAge)
	return &csrfCookieValidation{sc: sc, name: csrfCookieName, secure: secure}
}

// getTokenFromCookie returns the token stored in the cookie. A cookie that is
// present but cannot be decoded is an error other than errNoCSRFCookie.
func (c *csrfCookieValidation) getTokenFromCookie(r *http.Request) ([]byte, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return nil, errNoCSRFCookie
	}
	var token []byte
	if err := c.sc.Decode(c.name, cookie.Value, &token); err != nil {
		return nil, err
	}
	if len(token) != csrfTokenLength {
		return nil, fmt.Errorf("unexpected length (want %d, got %d)", csrfTokenLength, len(token))
	}
	return token, nil
}

func (c *csrfCookieValidation) setNewCookie(w http.ResponseWriter, token []byte) error {
	encoded, err := c.sc.Encode(c.name, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    encoded,
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(csrfCookieMaxAge) * time.Second),
	})
	return nil
}

// EnsureCookieSet sets a CSRF cookie on the response unless the request
// already carries a valid one, and returns the token base64 encoded.
func (c *csrfCookieValidation) EnsureCookieSet(w http.ResponseWriter, r *http.Request) string {
	token, err := c.getTokenFromCookie(r)
	if err != nil {
		if !errors.Is(err, errNoCSRFCookie) {
			log.Ctx(r.Context()).Info().Err(err).Msg("malformed CSRF token")
		}
		token = make([]byte, csrfTokenLength)
		_, _ = rand.Read(token)
		if err := c.setNewCookie(w, token); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("couldn't set CSRF cookie")
		}
	}
	return base64.StdEncoding.EncodeToString(token)
}

// ValidateToken checks expected against the token in the request's cookie.
func (c *csrfCookieValidation) ValidateToken(r *http.Request, expected string) error {
	decoded, err := base64.StdEncoding.DecodeString(expected)
	if err != nil {
		return errInvalidCSRF
	}
	token, err := c.getTokenFromCookie(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(token, decoded) {
		return errInvalidCSRF
	}
	return nil
}
