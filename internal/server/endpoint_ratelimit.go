// endpoint_ratelimit.go - Per-endpoint rate limiting.
//
// Login attempts and uploads get their own, stricter budgets; everything
// else shares the general API budget.
package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"image-gallery/internal/logging"
)

// EndpointRateLimiter manages rate limits for different endpoint types.
type EndpointRateLimiter struct {
	authLimiter   *rateLimiter // Stricter limits for login attempts
	uploadLimiter *rateLimiter // Upload-specific limits
	apiLimiter    *rateLimiter // General API limits

	trustProxy bool
}

// NewEndpointRateLimiterWithConfig creates a rate limiter with custom
// configuration. trustProxy selects how client addresses are read, see
// clientIP.
func NewEndpointRateLimiterWithConfig(cfg EndpointRateLimitConfig, trustProxy bool) *EndpointRateLimiter {
	return &EndpointRateLimiter{
		trustProxy:    trustProxy,
		authLimiter:   newRateLimiter(cfg.AuthRate, cfg.AuthWindow),
		uploadLimiter: newRateLimiter(cfg.UploadRate, cfg.UploadWindow),
		apiLimiter:    newRateLimiter(cfg.APIRate, cfg.APIWindow),
	}
}

// Middleware returns an HTTP middleware that applies endpoint-specific rate limits.
func (erl *EndpointRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		ip := clientIP(r, erl.trustProxy)

		var limiter *rateLimiter
		var limitType string

		switch {
		case strings.HasPrefix(path, "/authenticate"):
			limiter = erl.authLimiter
			limitType = "authentication"

		case strings.HasPrefix(path, "/upload"):
			limiter = erl.uploadLimiter
			limitType = "upload"

		default:
			limiter = erl.apiLimiter
			limitType = "api"
		}

		if ok, retry := limiter.reserve(ip); !ok {
			logging.Warn("rate_limit_exceeded", map[string]any{
				"rid":        RequestIDFromContext(r.Context()),
				"ip":         ip,
				"path":       path,
				"method":     r.Method,
				"limit_type": limitType,
			})
			writeTooManyRequests(w, retry, limitType)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stop ends the cleanup goroutines of all limiters.
func (erl *EndpointRateLimiter) Stop() {
	erl.authLimiter.Stop()
	erl.uploadLimiter.Stop()
	erl.apiLimiter.Stop()
}

func writeTooManyRequests(w http.ResponseWriter, retry time.Duration, limitType string) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	msg := "Rate limit exceeded. Please try again later."
	if limitType != "" {
		w.Header().Set("X-RateLimit-Limit-Type", limitType)
		msg = "Rate limit exceeded for " + limitType + " endpoints. Please try again later."
	}
	writeError(w, http.StatusTooManyRequests, msg)
}

// EndpointRateLimitConfig holds configuration for endpoint rate limits.
type EndpointRateLimitConfig struct {
	AuthRate     int           // Requests per window for auth endpoints
	AuthWindow   time.Duration // Window for auth rate limiting
	UploadRate   int           // Uploads per window
	UploadWindow time.Duration // Window for upload rate limiting
	APIRate      int           // General API requests per window
	APIWindow    time.Duration // Window for API rate limiting
}

// DefaultEndpointRateLimitConfig returns the default limits.
func DefaultEndpointRateLimitConfig() EndpointRateLimitConfig {
	return EndpointRateLimitConfig{
		AuthRate:     10,
		AuthWindow:   time.Minute,
		UploadRate:   20,
		UploadWindow: time.Hour,
		APIRate:      300,
		APIWindow:    time.Minute,
	}
}

// ParseRate parses limits written as "<count>/<unit>", where unit is s, min,
// h or any time.ParseDuration string ("300/min", "20/h", "5/30s").
func ParseRate(s string) (int, time.Duration, error) {
	countStr, unit, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("rate %q: want <count>/<window>", s)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("rate %q: count must be a positive integer", s)
	}

	var window time.Duration
	switch unit {
	case "s", "sec", "second":
		window = time.Second
	case "m", "min", "minute":
		window = time.Minute
	case "h", "hour":
		window = time.Hour
	default:
		window, err = time.ParseDuration(unit)
		if err != nil || window <= 0 {
			return 0, 0, fmt.Errorf("rate %q: invalid window %q", s, unit)
		}
	}
	return count, window, nil
}
