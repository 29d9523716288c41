package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	before := testutil.ToFloat64(httpClientRequests.WithLabelValues("test_client", http.MethodGet, "418"))

	client := &http.Client{Transport: HTTPMetricsRoundTripper("test_client")(nil)}
	res, err := client.Get(srv.URL)
	require.NoError(t, err)
	res.Body.Close()

	after := testutil.ToFloat64(httpClientRequests.WithLabelValues("test_client", http.MethodGet, "418"))
	assert.Equal(t, before+1, after)
}

func TestHandler(t *testing.T) {
	RecordSessionTransition("authenticated")
	RecordSessionExpired()
	RecordQueryCache(true)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, name := range []string{
		"foodmap_session_transitions_total",
		"foodmap_session_unexpected_expirations_total",
		"foodmap_query_cache_lookups_total",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestHTTPMetricsHandler(t *testing.T) {
	before := testutil.ToFloat64(httpServerRequests.WithLabelValues("get", "404"))

	h := HTTPMetricsHandler(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpServerRequests.WithLabelValues("get", "404")))
}

func TestBuildInfo(t *testing.T) {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "foodmap_build_info{")
}
