// Package restaurants is the client of the public food-map API: restaurant
// listings, the popular list and user submissions.
package restaurants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/campus-foodmap/foodmap/internal/httputil"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/retry"
	"github.com/campus-foodmap/foodmap/internal/telemetry/metrics"
	"github.com/campus-foodmap/foodmap/internal/version"
)

const (
	pathRestaurants = "/api/restaurants"
	pathPopular     = "/api/restaurants/popular"
	pathSubmissions = "/api/submissions"
	pathHealth      = "/health"
)

// Defaults for the query cache.
const (
	DefaultStaleTime = 5 * time.Minute
	DefaultRetry     = 1
	DefaultCacheSize = 128
	DefaultTimeout   = 10 * time.Second
)

const maxBody = 4 << 20

// ErrNotFound is returned when the API has no such restaurant.
var ErrNotFound = errors.New("restaurants: not found")

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("restaurants: %s: %d %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("restaurants: %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Is reports a 404 as ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type clientOptions struct {
	httpClient *http.Client
	staleTime  time.Duration
	retries    uint64
	retryDelay time.Duration
	cacheSize  int
}

// An Option customizes the Client.
type Option func(*clientOptions)

// WithHTTPClient sets the http.Client used to send requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithStaleTime sets how long a successful read is served from the cache.
// Zero disables caching.
func WithStaleTime(d time.Duration) Option {
	return func(o *clientOptions) { o.staleTime = d }
}

// WithRetry sets how many times a failed read is retried.
func WithRetry(n int) Option {
	return func(o *clientOptions) {
		if n < 0 {
			n = 0
		}
		o.retries = uint64(n)
	}
}

// WithRetryDelay sets the delay before the first retry.
func WithRetryDelay(d time.Duration) Option {
	return func(o *clientOptions) { o.retryDelay = d }
}

// WithCacheSize bounds the number of cached reads.
func WithCacheSize(n int) Option {
	return func(o *clientOptions) { o.cacheSize = n }
}

// Client talks to the food-map API. Reads are cached, deduplicated and
// retried; writes are sent exactly once.
type Client struct {
	base    *url.URL
	http    *http.Client
	retries uint64
	delay   time.Duration
	timeout time.Duration

	cache *expirable.LRU[string, any]
	group singleflight.Group
}

// New creates a Client for the API at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("restaurants: invalid base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("restaurants: base url must be absolute: %q", baseURL)
	}

	o := clientOptions{
		staleTime:  DefaultStaleTime,
		retries:    DefaultRetry,
		retryDelay: time.Second,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range options {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = httputil.NewClient("restaurants", DefaultTimeout, nil)
	}

	c := &Client{
		base:    u,
		http:    o.httpClient,
		retries: o.retries,
		delay:   o.retryDelay,
		timeout: queryTimeout(o.httpClient.Timeout, o.retries, o.retryDelay),
	}
	if o.staleTime > 0 {
		c.cache = expirable.NewLRU[string, any](o.cacheSize, nil, o.staleTime)
	}
	return c, nil
}

// List returns every restaurant.
func (c *Client) List(ctx context.Context) ([]Restaurant, error) {
	return c.list(ctx, pathRestaurants)
}

// Get returns the restaurant with the given id.
func (c *Client) Get(ctx context.Context, id ID) (*Restaurant, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	path := pathRestaurants + "/" + url.PathEscape(string(id))
	v, err := c.query(ctx, path, func(ctx context.Context) (any, error) {
		var out Restaurant
		if err := c.get(ctx, path, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	r := *v.(*Restaurant)
	return &r, nil
}

// Popular returns the most liked restaurants.
func (c *Client) Popular(ctx context.Context) ([]Restaurant, error) {
	return c.list(ctx, pathPopular)
}

// Submissions returns the suggestions sent so far.
func (c *Client) Submissions(ctx context.Context) ([]Submission, error) {
	v, err := c.query(ctx, pathSubmissions, func(ctx context.Context) (any, error) {
		var out []Submission
		if err := c.get(ctx, pathSubmissions, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Submission(nil), v.([]Submission)...), nil
}

func (c *Client) list(ctx context.Context, path string) ([]Restaurant, error) {
	v, err := c.query(ctx, path, func(ctx context.Context) (any, error) {
		var out []Restaurant
		if err := c.get(ctx, path, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Restaurant(nil), v.([]Restaurant)...), nil
}

// Submit sends a restaurant suggestion and returns the API's message. The
// cached listing is dropped so the next List sees the change.
func (c *Client) Submit(ctx context.Context, s Submission) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("restaurants: encode submission: %w", err)
	}

	log.Info(ctx).Str("restaurant", s.RestaurantName).Msg("restaurants: submitting")
	body, err := c.send(ctx, http.MethodPost, pathSubmissions, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	c.Invalidate(pathRestaurants, pathPopular, pathSubmissions)

	var env envelope
	_ = json.Unmarshal(body, &env)
	return env.Message, nil
}

// Invalidate drops the cached reads for the given API paths.
func (c *Client) Invalidate(paths ...string) {
	if c.cache == nil {
		return
	}
	for _, p := range paths {
		c.cache.Remove(p)
	}
}

// query serves key from the cache or runs fetch once for all concurrent
// callers, retrying transient failures.
func (c *Client) query(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			metrics.RecordQueryCache(true)
			return v, nil
		}
		metrics.RecordQueryCache(false)
	}

	// the shared fetch outlives any single caller; each caller waits on its
	// own context.
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		var out any
		err := retry.WithBackoff(ctx, "restaurants", func(ctx context.Context) error {
			var err error
			out, err = fetch(ctx)
			return err
		}, retry.WithMaxRetries(c.retries), retry.WithInitialInterval(c.delay))
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Add(key, out)
		}
		return out, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			log.Debug(ctx).Str("key", key).Msg("restaurants: shared in-flight query")
		}
		return res.Val, res.Err
	}
}

// queryTimeout bounds a shared read: every attempt at the per-request
// timeout plus the jittered delays between them.
func queryTimeout(perRequest time.Duration, retries uint64, delay time.Duration) time.Duration {
	if perRequest <= 0 {
		perRequest = DefaultTimeout
	}
	n := time.Duration(retries)
	return (n+1)*perRequest + 2*n*delay
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	body, err := c.send(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return err
	}
	if err := decodeData(body, out); err != nil {
		return retry.NewTerminalError(fmt.Errorf("restaurants: decode %s: %w", path, err))
	}
	return nil
}

// send performs one request and returns the 2xx body. Client errors are
// terminal; server and transport errors may be retried.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, httputil.JoinURL(c.base, path).String(), body)
	if err != nil {
		return nil, retry.NewTerminalError(fmt.Errorf("restaurants: %s: %w", path, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != http.NoBody {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("restaurants: %s: %w", path, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("restaurants: read %s: %w", path, err)
	}
	if res.StatusCode >= 400 {
		apiErr := &Error{Status: res.StatusCode, Path: path, Message: message(b)}
		log.Warn(ctx).Err(apiErr).Msg("restaurants: request failed")
		if res.StatusCode < 500 {
			return nil, retry.NewTerminalError(apiErr)
		}
		return nil, apiErr
	}
	return b, nil
}

func message(b []byte) string {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return ""
	}
	return env.Message
}
