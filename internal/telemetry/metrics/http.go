package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetricsHandler counts and times the inbound requests served by next.
func HTTPMetricsHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(httpServerDuration,
		promhttp.InstrumentHandlerCounter(httpServerRequests, next))
}

type metricsRoundTripper struct {
	service string
	next    http.RoundTripper
}

// HTTPMetricsRoundTripper creates a metrics tracking tripper for outbound HTTP requests.
func HTTPMetricsRoundTripper(service string) func(next http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if next == nil {
			next = http.DefaultTransport
		}
		return &metricsRoundTripper{service: service, next: next}
	}
}

func (t *metricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := t.next.RoundTrip(req)
	code := 0
	if res != nil {
		code = res.StatusCode
	}
	RecordHTTPClientRequest(t.service, req.Method, code, time.Since(start))
	return res, err
}
