package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifications"

// Collector registers everything on its own registry, never the global one.
// A nil *Collector is a valid no-op sink.
type Collector struct {
	registry *prometheus.Registry

	gateDecisions    *prometheus.CounterVec
	identityRequests *prometheus.CounterVec
	identityDuration prometheus.Histogram
	healthUp         *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: registry,
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Authorization gate decisions by policy and outcome.",
		}, []string{"policy", "outcome"}),
		identityRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_requests_total",
			Help:      "Calls to the identity service by outcome.",
		}, []string{"outcome"}),
		identityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_request_duration_seconds",
			Help:      "Latency of identity service calls.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		healthUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_check_up",
			Help:      "1 when the last detailed health check for a dependency passed.",
		}, []string{"check"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registry.MustRegister(
		c.gateDecisions,
		c.identityRequests,
		c.identityDuration,
		c.healthUp,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// FromConfig returns nil when metrics are disabled.
func FromConfig(enabled bool) *Collector {
	if !enabled {
		return nil
	}
	return NewCollector(nil)
}

func (c *Collector) ObserveGateDecision(policy, outcome string) {
	if c == nil {
		return
	}
	c.gateDecisions.WithLabelValues(policy, outcome).Inc()
}

func (c *Collector) ObserveIdentityRequest(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.identityRequests.WithLabelValues(outcome).Inc()
	c.identityDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveProbe(name string, healthy bool) {
	if c == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1
	}
	c.healthUp.WithLabelValues(name).Set(value)
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
