package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"image-gallery/internal/assets"
	"image-gallery/internal/gallery"
	"image-gallery/internal/live"
	"image-gallery/internal/session"
)

// DefaultMaxUploadBytes is the upload size limit when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

type BuildInfo struct {
	Version string
	Commit  string
}

type Config struct {
	Addr  string // e.g. ":3000"
	Build BuildInfo

	Gallery *gallery.Service
	Store   assets.Store // probed by /ready
	Breaker *assets.CircuitBreaker
	Hub     *live.Hub
	Gate    *session.Gate
	Auth    AuthConfig

	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a reverse proxy that sets them.
	TrustProxy bool

	MaxUploadBytes int64
	RateLimits     EndpointRateLimitConfig
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler

	gallery        *gallery.Service
	store          assets.Store
	breaker        *assets.CircuitBreaker
	hub            *live.Hub
	gate           *session.Gate
	auth           AuthConfig
	trustProxy     bool
	build          BuildInfo
	maxUploadBytes int64

	limiter *EndpointRateLimiter
	lockout *loginLockout
	metrics *Metrics
	started time.Time
}

func New(cfg Config) *Server {
	s := &Server{
		gallery:        cfg.Gallery,
		store:          cfg.Store,
		breaker:        cfg.Breaker,
		hub:            cfg.Hub,
		gate:           cfg.Gate,
		auth:           cfg.Auth,
		trustProxy:     cfg.TrustProxy,
		build:          cfg.Build,
		maxUploadBytes: cfg.MaxUploadBytes,
		metrics:        NewMetrics(),
		started:        time.Now(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	if s.hub == nil {
		s.hub = live.NewHub()
	}
	rl := cfg.RateLimits
	if rl == (EndpointRateLimitConfig{}) {
		rl = DefaultEndpointRateLimitConfig()
	}
	s.limiter = NewEndpointRateLimiterWithConfig(rl, cfg.TrustProxy)
	s.lockout = newLoginLockout(cfg.Auth.LockoutAttempts, cfg.Auth.LockoutDuration, cfg.Auth.LockoutWindow)

	mux := http.NewServeMux()
	s.routes(mux)

	// Wrap middleware: requestID -> logging -> rate limit -> headers -> gzip -> mux
	var handler http.Handler = mux
	handler = CompressionMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = s.limiter.Middleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	ws := live.NewHandler(s.hub, nil)

	// Reads
	mux.HandleFunc("GET /images", s.listImagesHandler)
	mux.HandleFunc("GET /params", s.getParamsHandler)

	// Mutations
	mux.Handle("POST /upload", s.requireAuth(http.HandlerFunc(s.uploadHandler)))
	mux.Handle("DELETE /images/{public_id}", s.requireAuth(http.HandlerFunc(s.deleteImageHandler)))
	mux.Handle("POST /images/move", s.requireAuth(http.HandlerFunc(s.moveImageHandler)))
	mux.Handle("POST /update-params", s.requireAuth(http.HandlerFunc(s.updateParamsHandler)))

	// Session
	mux.HandleFunc("POST /authenticate", s.authenticateHandler)
	mux.HandleFunc("GET /check-auth", s.checkAuthHandler)
	mux.HandleFunc("POST /logout", s.logoutHandler)

	// Operations
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /ready", s.HandleReady)
	mux.Handle("GET /metrics", s.PrometheusHandler())

	// Push channel. Viewers may also upgrade on the root path.
	mux.Handle("GET /ws", ws)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if live.IsUpgrade(r) {
			ws.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler returns the fully wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the broadcaster the server notifies after mutations.
func (s *Server) Hub() *live.Hub {
	return s.hub
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting requests, closes live connections and waits for
// in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.limiter.Stop()
	s.lockout.Stop()
	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
