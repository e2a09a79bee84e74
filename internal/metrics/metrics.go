// Package metrics holds the Prometheus collectors shared by the API server and worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	batchUsers      *prometheus.CounterVec
}

// New builds a Collector on a private registry. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	c := &Collector{
		registry: registry,
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecopulse_gateway_calls_total",
			Help: "AI gateway calls by backend, model and outcome.",
		}, []string{"backend", "model", "outcome"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecopulse_gateway_call_duration_seconds",
			Help:    "AI gateway call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"backend", "model"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecopulse_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecopulse_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		batchUsers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecopulse_daily_tips_users_total",
			Help: "Users visited by the daily tips batch, by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(c.gatewayCalls, c.gatewayDuration, c.httpRequests, c.httpDuration, c.batchUsers)
	return c
}

func (c *Collector) ObserveGatewayCall(backend, model, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.gatewayCalls.WithLabelValues(backend, model, outcome).Inc()
	c.gatewayDuration.WithLabelValues(backend, model).Observe(d.Seconds())
}

func (c *Collector) ObserveHTTP(route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) ObserveBatchUser(result string) {
	if c == nil {
		return
	}
	c.batchUsers.WithLabelValues(result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
