// Package retry runs an operation again, with exponential back-off, when it
// fails with a transient error.
package retry

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/campus-foodmap/foodmap/internal/log"
)

type serviceName struct{}

type config struct {
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// An Option customizes WithBackoff.
type Option func(*config)

// WithMaxRetries limits the number of retries after the first attempt.
func WithMaxRetries(n uint64) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(c *config) { c.initialInterval = d }
}

// WithMaxInterval caps the delay between retries.
func WithMaxInterval(d time.Duration) Option {
	return func(c *config) { c.maxInterval = d }
}

// WithBackoff calls fn until it succeeds, returns a terminal error, the
// retries are used up, or the context is done.
func WithBackoff(ctx context.Context, name string, fn func(context.Context) error, opts ...Option) error {
	cfg := config{
		maxRetries:      1,
		initialInterval: backoff.DefaultInitialInterval,
		maxInterval:     backoff.DefaultMaxInterval,
	}
	for _, o := range opts {
		o(&cfg)
	}
	name, ctx = getServiceNameContext(ctx, name)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.initialInterval
	b.MaxInterval = cfg.maxInterval
	b.MaxElapsedTime = 0

	return backoff.RetryNotify(
		func() error {
			err := fn(ctx)
			if IsTerminalError(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(b, cfg.maxRetries), ctx),
		func(err error, next time.Duration) {
			log.Ctx(ctx).Debug().Err(err).Str("service-name", name).Dur("next", next).Msg("retrying")
		},
	)
}

func getServiceNameContext(ctx context.Context, name string) (string, context.Context) {
	names, ok := ctx.Value(serviceName{}).([]string)
	if ok {
		names = append(names[:len(names):len(names)], name)
	} else {
		names = []string{name}
	}
	return strings.Join(names, "."), context.WithValue(ctx, serviceName{}, names)
}
