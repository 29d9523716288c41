// Package metrics defines the prometheus collectors exported by the foodmap
// client and the HTTP handler serving them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campus-foodmap/foodmap/internal/version"
)

const namespace = "foodmap"

// Registry holds every collector defined by this package.
var Registry = prometheus.NewRegistry()

var (
	httpClientRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http_client",
		Name:      "requests_total",
		Help:      "Total outbound HTTP requests by service, method and response code.",
	}, []string{"service", "method", "code"})

	httpClientDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http_client",
		Name:      "request_duration_seconds",
		Help:      "Outbound HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method"})

	httpServerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http_server",
		Name:      "requests_total",
		Help:      "Total inbound HTTP requests by method and response code.",
	}, []string{"method", "code"})

	httpServerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http_server",
		Name:      "request_duration_seconds",
		Help:      "Inbound HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information about the running client. Always 1.",
	}, []string{"version", "revision"})

	sessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Session state transitions by resulting state.",
	}, []string{"state"})

	sessionExpirations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "unexpected_expirations_total",
		Help:      "Unauthorized responses treated as an unexpected session expiry.",
	})

	queryCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "cache_lookups_total",
		Help:      "Restaurant query cache lookups by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpClientRequests,
		httpClientDuration,
		httpServerRequests,
		httpServerDuration,
		buildInfo,
		sessionTransitions,
		sessionExpirations,
		queryCache,
	)
	buildInfo.WithLabelValues(version.FullVersion(), version.GitCommit).Set(1)
}

// Handler returns an http.Handler serving the registry in the prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPClientRequest records one outbound request. A code of zero
// means the request failed before a response was received.
func RecordHTTPClientRequest(service, method string, code int, duration time.Duration) {
	httpClientRequests.WithLabelValues(service, method, strconv.Itoa(code)).Inc()
	httpClientDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordSessionTransition records the state a session moved to.
func RecordSessionTransition(state string) {
	sessionTransitions.WithLabelValues(state).Inc()
}

// RecordSessionExpired records an unexpected session expiry.
func RecordSessionExpired() {
	sessionExpirations.Inc()
}

// RecordQueryCache records a cache hit or miss.
func RecordQueryCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	queryCache.WithLabelValues(result).Inc()
}
