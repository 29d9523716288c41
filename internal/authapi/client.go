// Package authapi is the client of the remote identity service. It attaches
// the session cookie to every request and recognises unexpected session
// expiry, sending the user back to the login entry point.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/campus-foodmap/foodmap/internal/httputil"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/navigation"
	"github.com/campus-foodmap/foodmap/internal/telemetry/metrics"
	"github.com/campus-foodmap/foodmap/internal/version"
)

const (
	pathRegister = "/register"
	pathLogin    = "/login"
	pathLogout   = "/logout"
	pathMe       = "/me"
	pathAdmin    = "/admin/users"
)

// DefaultTimeout bounds each call when no timeout option is given.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 64 << 10

type clientOptions struct {
	httpClient *http.Client
	transport  http.RoundTripper
	timeout    time.Duration
	jar        http.CookieJar
	navigator  navigation.Navigator
	loginPath  string
}

// An Option customizes the Client.
type Option func(*clientOptions)

// WithHTTPClient sets the http.Client used to send requests. Its Jar is
// ignored; cookies are handled by the Client's own jar.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTransport sets the base transport of the default http.Client.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithCookieJar sets the jar holding the session cookie.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *clientOptions) { o.jar = jar }
}

// WithNavigator sets the navigator used when the request context carries
// none.
func WithNavigator(nav navigation.Navigator) Option {
	return func(o *clientOptions) { o.navigator = nav }
}

// WithLoginPath sets the login entry point used on session expiry.
func WithLoginPath(p string) Option {
	return func(o *clientOptions) { o.loginPath = p }
}

// A Client talks to the identity service.
type Client struct {
	base      *url.URL
	http      *http.Client
	jar       http.CookieJar
	navigator navigation.Navigator
	loginPath string
}

// New creates a new Client for the identity service rooted at baseURL,
// e.g. "https://api.example.com/api/auth".
func New(baseURL string, options ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("authapi: invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("authapi: base url %q is not absolute", baseURL)
	}

	o := clientOptions{
		timeout:   DefaultTimeout,
		loginPath: "/login",
	}
	for _, option := range options {
		option(&o)
	}
	if o.jar == nil {
		o.jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("authapi: cookie jar: %w", err)
		}
	}
	hc := o.httpClient
	if hc == nil {
		hc = httputil.NewClient("auth_api", o.timeout, o.transport)
	} else {
		cp := *hc
		cp.Jar = nil
		hc = &cp
	}

	return &Client{
		base:      base,
		http:      hc,
		jar:       o.jar,
		navigator: o.navigator,
		loginPath: o.loginPath,
	}, nil
}

// Jar returns the cookie jar holding the session credential.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Decorate returns a copy of req carrying the credential cookies that jar
// holds for the request URL and the headers every identity call sends.
func Decorate(req *http.Request, jar http.CookieJar) *http.Request {
	out := req.Clone(req.Context())
	if jar != nil {
		for _, cookie := range jar.Cookies(out.URL) {
			out.AddCookie(cookie)
		}
	}
	out.Header.Set("Accept", "application/json")
	out.Header.Set("User-Agent", version.UserAgent())
	if out.Body != nil && out.Body != http.NoBody && out.Header.Get("Content-Type") == "" {
		out.Header.Set("Content-Type", "application/json")
	}
	return out
}

// do sends one request to the endpoint at path, decoding a 2xx JSON body
// into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("authapi: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, httputil.JoinURL(c.base, path).String(), body)
	if err != nil {
		return fmt.Errorf("authapi: %s: %w", path, err)
	}

	log.Debug(ctx).Str("path", path).Msg("authapi: request")
	res, err := c.http.Do(Decorate(req, c.jar))
	if err != nil {
		return fmt.Errorf("authapi: %s: %w", path, err)
	}
	defer res.Body.Close()

	if cookies := res.Cookies(); len(cookies) > 0 {
		c.jar.SetCookies(req.URL, cookies)
	}

	if failure := Classify(path, res.StatusCode); failure != FailureNone {
		apiErr := &APIError{Status: res.StatusCode, Path: path, Message: errorMessage(res.Body)}
		if failure == FailureSessionExpired {
			c.sessionExpired(ctx, apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("authapi: decode %s: %w", path, err)
	}
	return nil
}

// sessionExpired sends the user to the login entry point with a full reload,
// unless they are already there.
func (c *Client) sessionExpired(ctx context.Context, apiErr *APIError) {
	metrics.RecordSessionExpired()

	nav, ok := navigation.FromContext(ctx)
	if !ok {
		nav = c.navigator
	}
	if nav == nil {
		log.Warn(ctx).Err(apiErr).Msg("authapi: session expired with no navigator")
		return
	}
	if nav.Location() == c.loginPath {
		return
	}
	log.Info(ctx).Str("path", apiErr.Path).Str("location", nav.Location()).Msg("authapi: session expired, redirecting to login")
	nav.Navigate(c.loginPath, navigation.ModeReload)
}

func errorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
