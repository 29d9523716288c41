package httputil

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/telemetry/metrics"
	"github.com/campus-foodmap/foodmap/pkg/telemetry/requestid"
)

type loggingRoundTripper struct {
	base      http.RoundTripper
	customize []func(event *zerolog.Event) *zerolog.Event
}

func (l loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := l.base.RoundTrip(req)
	statusCode := http.StatusInternalServerError
	if res != nil {
		statusCode = res.StatusCode
	}
	evt := log.Ctx(req.Context()).Debug().
		Str("method", req.Method).
		Str("authority", req.URL.Host).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start)).
		Int("response-code", statusCode)
	if err != nil {
		evt = evt.Err(err)
	}
	for _, f := range l.customize {
		f(evt)
	}
	evt.Msg("outbound http-request")
	return res, err
}

// NewLoggingRoundTripper creates a http.RoundTripper that will log requests.
func NewLoggingRoundTripper(base http.RoundTripper, customize ...func(event *zerolog.Event) *zerolog.Event) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return loggingRoundTripper{base: base, customize: customize}
}

// NewClient creates an http.Client for talking to the food-map API. Every
// request is traced, tagged with the request id, counted under name and
// logged.
func NewClient(name string, timeout time.Duration, base http.RoundTripper) *http.Client {
	transport := NewLoggingRoundTripper(base, func(evt *zerolog.Event) *zerolog.Event {
		return evt.Str("service", name)
	})
	transport = metrics.HTTPMetricsRoundTripper(name)(transport)
	transport = requestid.NewRoundTripper(transport)
	transport = otelhttp.NewTransport(transport)
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
