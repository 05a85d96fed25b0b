package demo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tesserabio/tessera-cli/pkg/cli"
)

type serverFixture struct {
	*authFixture
	server *Server
	token  string
}

// newServerFixture wires a full demo server against a fake platform API and
// returns a signed token accepted by the auth middleware.
func newServerFixture(t *testing.T, platform http.Handler) *serverFixture {
	t.Helper()
	f := newAuthFixture(t)

	upstream := httptest.NewServer(platform)
	t.Cleanup(upstream.Close)

	cfg := &cli.Config{
		ListenAddress: ":0",
		Authority:     "https://auth.test.tessera.bio/realms/tessera",
		ClientID:      "tessera-demo",
		APIURL:        upstream.URL,
	}
	srv := NewServer(zaptest.NewLogger(t), cfg, f.auth)

	token := f.sign(t, jwt.MapClaims{
		"sub":                "uid-1",
		"email":              "pathologist@example.org",
		"preferred_username": "pathologist",
		"iss":                cfg.Authority,
		"exp":                time.Now().Add(time.Minute).Unix(),
	})

	return &serverFixture{authFixture: f, server: srv, token: token}
}

func (f *serverFixture) request(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set(AuthHeaderKey, "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t, http.NotFoundHandler())
	w := f.request(t, http.MethodGet, "/healthz", "", false)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestConfigEndpoint(t *testing.T) {
	f := newServerFixture(t, http.NotFoundHandler())
	w := f.request(t, http.MethodGet, "/api/config", "", false)

	require.Equal(t, http.StatusOK, w.Code)
	var got FrontendConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "https://auth.test.tessera.bio/realms/tessera", got.OIDCAuthority)
	assert.Equal(t, "tessera-demo", got.OIDCClientID)
	assert.NotEmpty(t, got.APIURL)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t, http.NotFoundHandler())
	w := f.request(t, http.MethodGet, "/metrics", "", false)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tessera_demo_")
}

func TestMeEndpoint(t *testing.T) {
	f := newServerFixture(t, http.NotFoundHandler())
	w := f.request(t, http.MethodGet, "/api/me", "", true)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "uid-1", got["sub"])
	assert.Equal(t, "pathologist@example.org", got["email"])
	assert.Equal(t, "pathologist", got["username"])
}

func TestAPIGroupRequiresToken(t *testing.T) {
	f := newServerFixture(t, http.NotFoundHandler())
	w := f.request(t, http.MethodGet, "/api/me", "", false)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationsProxyForwardsCallerToken(t *testing.T) {
	var fixture *serverFixture
	platform := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/applications", r.URL.Path)
		assert.Equal(t, "tumor", r.URL.Query().Get("name"))
		assert.Equal(t, "Bearer "+fixture.token, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"app-1","name":"tumor-segmentation","version":"2.1.0"}]`))
	})
	fixture = newServerFixture(t, platform)

	w := fixture.request(t, http.MethodGet, "/api/applications?name=tumor", "", true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tumor-segmentation")
}

func TestRunCreateProxy(t *testing.T) {
	platform := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/runs", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app-1", body["applicationId"])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"run-9","applicationId":"app-1","state":"pending"}`))
	})
	f := newServerFixture(t, platform)

	w := f.request(t, http.MethodPost, "/api/runs", `{"applicationId":"app-1","slideIds":["slide-1"]}`, true)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "run-9")
}

func TestProxyPreservesUpstreamErrorStatus(t *testing.T) {
	platform := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"RUN_NOT_FOUND","message":"run does not exist"}`))
	})
	f := newServerFixture(t, platform)

	w := f.request(t, http.MethodGet, "/api/runs/run-404", "", true)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_NOT_FOUND")
}

func TestRequestIDHeader(t *testing.T) {
	f := newServerFixture(t, http.NotFoundHandler())

	w := f.request(t, http.MethodGet, "/healthz", "", false)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-me")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "trace-me", rec.Header().Get(RequestIDHeader))
}
