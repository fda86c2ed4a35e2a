package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"image-gallery/internal/assets"
	"image-gallery/internal/gallery"
	"image-gallery/internal/live"
	"image-gallery/internal/logging"
	"image-gallery/internal/server"
	"image-gallery/internal/session"
)

func main() {
	logging.SetDefault(logging.New(os.Stdout, logging.LevelFromEnv(), logging.JSONFromEnv()))

	// Refuse to start on invalid configuration.
	if err := server.ValidateAllConfiguration(); err != nil {
		logging.Error("invalid_configuration", nil, err)
		os.Exit(1)
	}
	server.WarnOnOptionalMissingConfig()

	cfg, err := loadConfig()
	if err != nil {
		logging.Error("invalid_configuration", nil, err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Asset store
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := openStore(connectCtx, cfg)
	cancel()
	if err != nil {
		logging.Error("asset_store_connect_failed", map[string]any{"backend": cfg.backend}, err)
		os.Exit(1)
	}
	guarded := assets.WithBreaker(store, assets.NewCircuitBreaker(5, 30*time.Second))

	gate := session.NewGate(cfg.password, cfg.sessionTTL)
	go gate.Run(ctx, session.DefaultSweepInterval)

	srv := server.New(serverConfig(cfg, guarded, gate))

	// Start the HTTP server in a background goroutine.
	// This allows us to listen for OS signals while the server runs.
	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting", map[string]any{
			"addr":    cfg.addr,
			"backend": cfg.backend,
			"version": cfg.build.Version,
			"commit":  cfg.build.Commit,
		})
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("shutting_down", map[string]any{"signal": sig.String()})
		stop()
		// Give the server 5 seconds to finish in-flight requests and cleanup.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("shutdown_error", nil, err)
			os.Exit(1)
		}
		logging.Info("shutdown_complete", nil)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("server_error", nil, err)
			os.Exit(1)
		}
	}
}

// serverConfig maps the loaded configuration onto the HTTP server.
func serverConfig(cfg config, store *assets.BreakerStore, gate *session.Gate) server.Config {
	return server.Config{
		Addr:    cfg.addr,
		Build:   cfg.build,
		Gallery: gallery.NewService(store, gallery.Config{ListMax: cfg.listMax}),
		Store:   store,
		Breaker: store.Breaker(),
		Hub:     live.NewHub(),
		Gate:    gate,
		Auth: server.AuthConfig{
			CookieSecure:    cfg.cookieSecure,
			LockoutAttempts: cfg.lockoutMax,
			LockoutDuration: cfg.lockoutFor,
		},
		TrustProxy:     cfg.trustProxy,
		MaxUploadBytes: cfg.maxUploadBytes,
		RateLimits:     cfg.rateLimits,
	}
}

type config struct {
	addr           string
	build          server.BuildInfo
	password       string
	sessionTTL     time.Duration
	cookieSecure   bool
	trustProxy     bool
	lockoutMax     int
	lockoutFor     time.Duration
	backend        string
	endpoint       string
	region         string
	accessKey      string
	secretKey      string
	storeOpts      assets.Options
	listMax        int
	maxUploadBytes int64
	rateLimits     server.EndpointRateLimitConfig
}

// loadConfig reads the environment. Values are assumed to have passed
// server.ValidateAllConfiguration.
func loadConfig() (config, error) {
	cfg := config{
		addr: getenvDefault("GALLERY_ADDR", ":3000"),
		build: server.BuildInfo{
			Version: getenvDefault("GALLERY_VERSION", "dev"),
			Commit:  getenvDefault("GALLERY_COMMIT", "unknown"),
		},
		password:  getenvDefault("GALLERY_PASSWORD", "1234"),
		backend:   getenvDefault("GALLERY_STORE", "minio"),
		endpoint:  os.Getenv("GALLERY_S3_ENDPOINT"),
		region:    getenvDefault("GALLERY_S3_REGION", "us-east-1"),
		accessKey: os.Getenv("GALLERY_S3_ACCESS_KEY"),
		secretKey: os.Getenv("GALLERY_S3_SECRET_KEY"),
		storeOpts: assets.Options{
			Bucket:        os.Getenv("GALLERY_BUCKET"),
			Prefix:        getenvDefault("GALLERY_PREFIX", assets.DefaultPrefix),
			PublicBaseURL: os.Getenv("GALLERY_PUBLIC_BASE_URL"),
		},
	}

	var err error
	if cfg.sessionTTL, err = time.ParseDuration(getenvDefault("GALLERY_SESSION_TTL", "12h")); err != nil {
		return cfg, fmt.Errorf("GALLERY_SESSION_TTL: %w", err)
	}
	if cfg.storeOpts.URLTTL, err = time.ParseDuration(getenvDefault("GALLERY_URL_TTL", "24h")); err != nil {
		return cfg, fmt.Errorf("GALLERY_URL_TTL: %w", err)
	}
	if cfg.cookieSecure, err = strconv.ParseBool(getenvDefault("GALLERY_COOKIE_SECURE", "false")); err != nil {
		return cfg, fmt.Errorf("GALLERY_COOKIE_SECURE: %w", err)
	}
	if cfg.trustProxy, err = strconv.ParseBool(getenvDefault("GALLERY_TRUST_PROXY", "false")); err != nil {
		return cfg, fmt.Errorf("GALLERY_TRUST_PROXY: %w", err)
	}
	if cfg.lockoutMax, err = strconv.Atoi(getenvDefault("GALLERY_LOCKOUT_ATTEMPTS", "5")); err != nil {
		return cfg, fmt.Errorf("GALLERY_LOCKOUT_ATTEMPTS: %w", err)
	}
	if cfg.lockoutFor, err = time.ParseDuration(getenvDefault("GALLERY_LOCKOUT_DURATION", "15m")); err != nil {
		return cfg, fmt.Errorf("GALLERY_LOCKOUT_DURATION: %w", err)
	}
	if cfg.listMax, err = strconv.Atoi(getenvDefault("GALLERY_LIST_MAX", "500")); err != nil {
		return cfg, fmt.Errorf("GALLERY_LIST_MAX: %w", err)
	}
	if cfg.maxUploadBytes, err = strconv.ParseInt(getenvDefault("GALLERY_MAX_UPLOAD_BYTES", "10485760"), 10, 64); err != nil {
		return cfg, fmt.Errorf("GALLERY_MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.rateLimits, err = loadRateLimits(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadRateLimits() (server.EndpointRateLimitConfig, error) {
	var rl server.EndpointRateLimitConfig
	var err error
	if rl.APIRate, rl.APIWindow, err = server.ParseRate(getenvDefault("GALLERY_RATE_API", "300/min")); err != nil {
		return rl, fmt.Errorf("GALLERY_RATE_API: %w", err)
	}
	if rl.UploadRate, rl.UploadWindow, err = server.ParseRate(getenvDefault("GALLERY_RATE_UPLOAD", "20/h")); err != nil {
		return rl, fmt.Errorf("GALLERY_RATE_UPLOAD: %w", err)
	}
	if rl.AuthRate, rl.AuthWindow, err = server.ParseRate(getenvDefault("GALLERY_RATE_AUTH", "10/min")); err != nil {
		return rl, fmt.Errorf("GALLERY_RATE_AUTH: %w", err)
	}
	return rl, nil
}

// openStore connects the configured asset store backend.
func openStore(ctx context.Context, cfg config) (assets.Store, error) {
	switch cfg.backend {
	case "memory":
		return assets.NewMemoryStore(cfg.storeOpts), nil
	case "s3":
		return assets.NewS3Store(ctx, assets.S3Config{
			Endpoint:  cfg.endpoint,
			Region:    cfg.region,
			AccessKey: cfg.accessKey,
			SecretKey: cfg.secretKey,
			Options:   cfg.storeOpts,
		})
	case "minio":
		return assets.NewMinioStore(ctx, assets.MinioConfig{
			Endpoint:  cfg.endpoint,
			AccessKey: cfg.accessKey,
			SecretKey: cfg.secretKey,
			Options:   cfg.storeOpts,
		})
	default:
		return nil, fmt.Errorf("unknown asset store backend %q", cfg.backend)
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
