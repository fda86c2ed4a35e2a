package server

import (
	"compress/gzip"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-gallery/internal/assets"
)

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, http.MethodGet, "/params", nil)

	h := rr.Header()
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Empty(t, h.Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/params", nil)
	req.TLS = &tls.ConnectionState{}
	rr = env.do(t, req)
	assert.NotEmpty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/params", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := env.do(t, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/params", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rr = env.do(t, req)
	assert.Len(t, rr.Header().Get("X-Request-Id"), 36)
}

func TestCompression(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("a", "b")

	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rr := env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	assert.Contains(t, rr.Header().Values("Vary"), "Accept-Encoding")

	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	var list []assets.Asset
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Equal(t, []string{"a", "b"}, ids(list))
}

func TestCompressionSkipsUploadAndPlainClients(t *testing.T) {
	upload := httptest.NewRequest(http.MethodPost, "/upload", nil)
	upload.Header.Set("Accept-Encoding", "gzip")
	assert.True(t, shouldSkipCompression(upload))

	ws := httptest.NewRequest(http.MethodGet, "/ws", nil)
	ws.Header.Set("Connection", "Upgrade")
	ws.Header.Set("Upgrade", "websocket")
	assert.True(t, shouldSkipCompression(ws))

	plain := httptest.NewRequest(http.MethodGet, "/images", nil)
	assert.False(t, acceptsCompression(plain))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "abc123", body["commit"])
}

func TestReady(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	h := decode[Health](t, rr)
	assert.Equal(t, HealthStatusHealthy, h.Status)
	assert.Equal(t, ComponentStatusUp, h.Components["asset_store"].Status)
	assert.Equal(t, ComponentStatusUp, h.Components["live"].Status)
}

func TestReadyStoreDown(t *testing.T) {
	env := newTestEnv(t, withStore(func(assets.Store) assets.Store { return failingStore{} }))
	rr := env.doJSON(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	h := decode[Health](t, rr)
	assert.Equal(t, HealthStatusUnhealthy, h.Status)
	assert.Equal(t, ComponentStatusDown, h.Components["asset_store"].Status)
}

func TestReadyCircuitOpen(t *testing.T) {
	cb := assets.NewCircuitBreaker(1, time.Hour)
	env := newTestEnv(t, func(c *Config) { c.Breaker = cb })
	_ = cb.Execute(func() error { return errors.New("boom") })
	require.Equal(t, assets.StateOpen, cb.State())

	rr := env.doJSON(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	h := decode[Health](t, rr)
	assert.Equal(t, HealthStatusDegraded, h.Status)
	assert.Equal(t, ComponentStatusDegraded, h.Components["circuit_breaker"].Status)
}

func TestDetermineOverallHealth(t *testing.T) {
	up := ComponentHealth{Status: ComponentStatusUp}
	degraded := ComponentHealth{Status: ComponentStatusDegraded}
	down := ComponentHealth{Status: ComponentStatusDown}

	assert.Equal(t, HealthStatusHealthy, determineOverallHealth(map[string]ComponentHealth{"a": up}))
	assert.Equal(t, HealthStatusDegraded, determineOverallHealth(map[string]ComponentHealth{"a": up, "b": degraded}))
	assert.Equal(t, HealthStatusUnhealthy, determineOverallHealth(map[string]ComponentHealth{"a": degraded, "b": down}))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Breaker = assets.NewCircuitBreaker(5, time.Minute)
		c.Build.Version = `v"1`
	})
	c := env.login(t)
	env.doJSON(t, http.MethodPost, "/update-params", map[string]string{"pID": "1", "wnr": "2"}, c)

	rr := env.doJSON(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

	body := rr.Body.String()
	assert.Contains(t, body, `gallery_info{version="v\"1",commit="abc123"} 1`)
	assert.Contains(t, body, "gallery_login_success_total 1\n")
	assert.Contains(t, body, "gallery_param_updates_total 1\n")
	assert.Contains(t, body, "gallery_broadcasts_total 1\n")
	assert.Contains(t, body, "gallery_live_subscribers 1\n")
	assert.Contains(t, body, "gallery_sessions 1\n")
	assert.Contains(t, body, `gallery_store_circuit_state{state="closed"} 1`)
}
