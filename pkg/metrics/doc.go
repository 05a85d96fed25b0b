// Package metrics defines Prometheus metrics for the demo server, covering
// request handling, bearer-token validation, JWKS refreshes, and platform
// API proxying.
package metrics
