package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuthMetricsExistAndIncrement(t *testing.T) {
	issuer := "https://auth.test.tessera.bio/realms/test"

	AuthSuccess.WithLabelValues(issuer).Inc()
	if v := testutil.ToFloat64(AuthSuccess.WithLabelValues(issuer)); v < 1 {
		t.Fatalf("expected AuthSuccess >= 1, got %v", v)
	}

	AuthFailure.WithLabelValues("expired").Add(2)
	if v := testutil.ToFloat64(AuthFailure.WithLabelValues("expired")); v < 2 {
		t.Fatalf("expected AuthFailure >= 2, got %v", v)
	}

	JWKSRefresh.WithLabelValues("hit").Inc()
	if v := testutil.ToFloat64(JWKSRefresh.WithLabelValues("hit")); v < 1 {
		t.Fatalf("expected JWKSRefresh >= 1, got %v", v)
	}
}

func TestProxyMetricsLabelCardinality(t *testing.T) {
	ProxyErrors.Reset()
	defer ProxyErrors.Reset()
	labels := []string{"applications", "502"}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("ProxyErrors panicked with labels %v: %v", labels, r)
		}
	}()

	ProxyErrors.WithLabelValues(labels...).Inc()
	if v := testutil.ToFloat64(ProxyErrors.WithLabelValues(labels...)); v != 1 {
		t.Fatalf("expected metric value 1 after increment, got %v", v)
	}
}

func TestMetricsHandlerServesRegisteredCounters(t *testing.T) {
	RequestsTotal.WithLabelValues("/api/me", "200").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	MetricsHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tessera_demo_requests_total") {
		t.Fatal("expected tessera_demo_requests_total in metrics output")
	}
}
