package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestGatewayCallCounted(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObserveGatewayCall("http", "google/gemini-2.5-flash", "ok", 200*time.Millisecond)
	c.ObserveGatewayCall("http", "google/gemini-2.5-flash", "ok", time.Second)
	c.ObserveGatewayCall("http", "google/gemini-2.5-flash", "rate", time.Second)
	require.Equal(t, 2.0, testutil.ToFloat64(c.gatewayCalls.WithLabelValues("http", "google/gemini-2.5-flash", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.gatewayCalls.WithLabelValues("http", "google/gemini-2.5-flash", "rate")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveGatewayCall("a", "b", "c", time.Second)
	c.ObserveHTTP("/x", 200, time.Second)
	c.ObserveBatchUser("processed")
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New(nil)
	c.ObserveHTTP("/functions/v1/predict", 200, 10*time.Millisecond)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(string(body), "ecopulse_http_requests_total"))
}
