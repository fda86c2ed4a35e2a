package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"image-gallery/internal/assets"
	"image-gallery/internal/gallery"
	"image-gallery/internal/live"
	"image-gallery/internal/session"
)

const testPassword = "s3cret"

// pngBytes sniffs as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

type testEnv struct {
	srv   *Server
	mem   *assets.MemoryStore
	store assets.Store
	sub   *countingSub
}

type envOption func(*Config)

func withStore(wrap func(assets.Store) assets.Store) envOption {
	return func(c *Config) {
		c.Store = wrap(c.Store)
		c.Gallery = gallery.NewService(c.Store, gallery.Config{})
	}
}

func withMaxUpload(n int64) envOption {
	return func(c *Config) { c.MaxUploadBytes = n }
}

func withRateLimits(rl EndpointRateLimitConfig) envOption {
	return func(c *Config) { c.RateLimits = rl }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	mem := assets.NewMemoryStore(assets.Options{})
	cfg := Config{
		Build:   BuildInfo{Version: "test", Commit: "abc123"},
		Store:   mem,
		Gallery: gallery.NewService(mem, gallery.Config{}),
		Hub:     live.NewHub(),
		Gate:    session.NewGate(testPassword, time.Hour),
		RateLimits: EndpointRateLimitConfig{
			AuthRate: 1000, AuthWindow: time.Minute,
			UploadRate: 1000, UploadWindow: time.Minute,
			APIRate: 1000, APIWindow: time.Minute,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := New(cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	sub := &countingSub{}
	srv.Hub().Subscribe(sub)
	return &testEnv{srv: srv, mem: mem, store: cfg.Store, sub: sub}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			r = strings.NewReader(s)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			r = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req, cookies...)
}

// login authenticates and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := e.doJSON(t, http.MethodPost, "/authenticate", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == defaultCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", "ignored"))

	h := make(textproto.MIMEHeader)
	h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, data []byte, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "image", "photo.png", contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return e.do(t, req, cookies...)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func ids(list []assets.Asset) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.PublicID)
	}
	return out
}

// countingSub records refresh messages.
type countingSub struct {
	mu   sync.Mutex
	msgs []string
}

func (c *countingSub) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, string(msg))
	return nil
}

func (c *countingSub) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// failingStore fails every mutation and listing with an upstream error.
type failingStore struct {
	assets.Store
}

func (failingStore) List(ctx context.Context, max int) ([]assets.Asset, error) {
	return nil, assets.ErrUpstream
}

func (failingStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (assets.Asset, error) {
	return assets.Asset{}, assets.ErrUpstream
}

func (failingStore) Delete(ctx context.Context, publicID string) error {
	return assets.ErrUpstream
}

func (failingStore) Ping(ctx context.Context) error {
	return assets.ErrUpstream
}
