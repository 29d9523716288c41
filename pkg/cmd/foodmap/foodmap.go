// Package foodmap wires the foodmap client together and runs it.
package foodmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/campus-foodmap/foodmap/internal/authapi"
	"github.com/campus-foodmap/foodmap/internal/config"
	"github.com/campus-foodmap/foodmap/internal/httputil"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/restaurants"
	"github.com/campus-foodmap/foodmap/internal/session"
	"github.com/campus-foodmap/foodmap/internal/telemetry/metrics"
	"github.com/campus-foodmap/foodmap/internal/version"
	"github.com/campus-foodmap/foodmap/internal/web"
)

const shutdownTimeout = 5 * time.Second

// Clients are the API clients built from Options.
type Clients struct {
	Auth        *authapi.Client
	Restaurants *restaurants.Client
}

// NewClients builds the identity and restaurant clients.
func NewClients(opts *config.Options) (*Clients, error) {
	auth, err := authapi.New(opts.AuthURL(),
		authapi.WithHTTPClient(httputil.NewClient("authapi", opts.RequestTimeout, nil)),
		authapi.WithLoginPath(opts.LoginPath),
	)
	if err != nil {
		return nil, err
	}
	rc, err := restaurants.New(opts.APIURL,
		restaurants.WithHTTPClient(httputil.NewClient("restaurants", opts.RequestTimeout, nil)),
		restaurants.WithStaleTime(opts.QueryStaleTime),
		restaurants.WithRetry(opts.QueryRetry),
	)
	if err != nil {
		return nil, err
	}
	return &Clients{Auth: auth, Restaurants: rc}, nil
}

// Run serves the web client until ctx is done or SIGINT/SIGTERM arrives.
func Run(ctx context.Context, opts *config.Options) error {
	if err := log.SetLevelString(opts.LogLevel); err != nil {
		return err
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, i ...any) { log.Ctx(ctx).Debug().Msgf(s, i...) }))

	log.Info(ctx).
		Str("version", version.FullVersion()).
		Str("api_url", opts.APIURL).
		Str("client_url", opts.ClientURL).
		Str("environment", opts.Environment).
		Msg("cmd/foodmap: starting")

	clients, err := NewClients(opts)
	if err != nil {
		return err
	}
	store := session.New(clients.Auth)
	cancelSub := store.Subscribe(func(s session.Session) {
		log.Debug(ctx).Stringer("state", s.State()).Bool("loading", s.IsLoading).Msg("cmd/foodmap: session changed")
	})
	defer cancelSub()

	srv, err := web.New(store, clients.Auth, clients.Restaurants, web.Options{
		LoginPath:     opts.LoginPath,
		CookieSecret:  opts.GetCookieSecret(),
		SecureCookies: opts.IsProduction(),
	})
	if err != nil {
		return err
	}

	if opts.IsDevelopment() {
		go func() {
			report := clients.Restaurants.TestConnection(ctx)
			evt := log.Info(ctx)
			if !report.Success {
				evt = log.Warn(ctx).Str("error", report.Error)
			}
			evt.Msg("cmd/foodmap: " + report.Message)
		}()
	}
	go store.Initialize(ctx)

	ctx, cancel := context.WithCancel(ctx)
	go func(ctx context.Context) {
		ch := make(chan os.Signal, 2)
		defer signal.Stop(ch)

		signal.Notify(ch, os.Interrupt)
		signal.Notify(ch, syscall.SIGTERM)

		select {
		case <-ch:
		case <-ctx.Done():
		}
		cancel()
	}(ctx)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return serve(ctx, "web", opts.Addr, srv)
	})
	if opts.MetricsAddr != "" {
		eg.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			return serve(ctx, "metrics", opts.MetricsAddr, mux)
		})
	}
	return eg.Wait()
}

// serve runs an HTTP server on addr until ctx is done, then shuts it down.
func serve(ctx context.Context, name, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: listen: %w", name, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          stdlog.New(&log.StdLogWrapper{Logger: log.Logger()}, "", 0),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	log.Info(ctx).Str("service", name).Str("address", ln.Addr().String()).Msg("cmd/foodmap: listening")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("%s: %w", name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	log.Info(ctx).Str("service", name).Msg("cmd/foodmap: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", name, err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Check runs the connection test, or probes a single endpoint when one is
// given, and writes the JSON report to w. It fails when the API is not
// reachable.
func Check(ctx context.Context, opts *config.Options, endpoint string, w io.Writer) error {
	clients, err := NewClients(opts)
	if err != nil {
		return err
	}

	var report any
	var ok bool
	if endpoint == "" {
		r := clients.Restaurants.TestConnection(ctx)
		report, ok = r, r.Success
	} else {
		r := clients.Restaurants.TestEndpoint(ctx, endpoint)
		report, ok = r, r.Success
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !ok {
		return errors.New("foodmap: api is not reachable")
	}
	return nil
}
