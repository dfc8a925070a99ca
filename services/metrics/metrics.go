package metricsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	ProxyRequests *prometheus.CounterVec   // proxied calls by resource, operation and status
	ProxyDuration *prometheus.HistogramVec // backend latency in seconds by resource and operation
	ProxyFailures *prometheus.CounterVec   // transport failures by resource
	LoginAttempts *prometheus.CounterVec   // logins by status (success, failure, invalid)
	RateLimitHits *prometheus.CounterVec   // rejected requests by route
}

// NewMetrics registers the collectors on a fresh registry, with the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		ProxyRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_requests_total",
				Help: "Total number of proxied backend calls by resource, operation and status",
			},
			[]string{"resource", "operation", "status"},
		),

		ProxyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proxy_request_duration_seconds",
				Help:    "Latency of the proxied backend calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource", "operation"},
		),

		ProxyFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_transport_failures_total",
				Help: "Total number of backend calls that got no response",
			},
			[]string{"resource"},
		),

		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Total number of login attempts by status",
			},
			[]string{"status"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_hits_total",
				Help: "Total number of requests rejected by a rate limiter",
			},
			[]string{"route"},
		),
	}
}
