package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_demo_requests_total",
		Help: "Total number of HTTP requests handled by the demo server",
	}, []string{"route", "status"})

	// Authentication metrics
	AuthSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_demo_auth_success_total",
		Help: "Total number of requests with a valid bearer token",
	}, []string{"issuer"})
	AuthFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_demo_auth_failure_total",
		Help: "Total number of requests rejected by token validation",
	}, []string{"reason"})
	JWKSRefresh = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_demo_jwks_refresh_total",
		Help: "Total number of JWKS refreshes triggered by unknown key IDs",
	}, []string{"outcome"})

	// Upstream proxy metrics. Resource is the platform collection being
	// proxied (applications, runs); keep status coarse to bound cardinality.
	ProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_demo_proxy_requests_total",
		Help: "Total number of requests proxied to the platform API",
	}, []string{"resource"})
	ProxyErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_demo_proxy_errors_total",
		Help: "Total number of platform API proxy requests that failed",
	}, []string{"resource", "status"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(AuthSuccess)
	prometheus.MustRegister(AuthFailure)
	prometheus.MustRegister(JWKSRefresh)
	prometheus.MustRegister(ProxyRequests)
	prometheus.MustRegister(ProxyErrors)
}

// MetricsHandler returns an http.Handler that serves the Prometheus metrics
// endpoint for all registered collectors.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
