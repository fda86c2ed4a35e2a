package server

import (
	"context"
	"net/http"
	"time"

	"image-gallery/internal/assets"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
)

// Health is the /ready response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
	Details   any             `json:"details,omitempty"`
}

// HandleHealth is the liveness probe: it answers as long as the process
// serves HTTP.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.build.Version,
		"commit":  s.build.Commit,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// HandleReady reports whether the asset store can be reached. Degraded
// still answers 200; unhealthy answers 503.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth(r.Context())

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, health)
}

func (s *Server) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  time.Now(),
		Version:    s.build.Version,
		Components: make(map[string]ComponentHealth),
	}

	health.Components["asset_store"] = s.checkStoreHealth(ctx)
	if s.breaker != nil {
		health.Components["circuit_breaker"] = s.checkBreakerHealth()
	}
	health.Components["live"] = ComponentHealth{
		Status:  ComponentStatusUp,
		Details: s.hub.Stats(),
	}

	health.Status = determineOverallHealth(health.Components)
	return health
}

// checkStoreHealth pings the asset store
func (s *Server) checkStoreHealth(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "asset store not configured"}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "asset store unavailable",
		}
	}

	latency := time.Since(start).Milliseconds()
	status := ComponentStatusUp
	message := "asset store healthy"
	if latency > 1000 {
		status = ComponentStatusDegraded
		message = "asset store latency high"
	}

	return ComponentHealth{
		Status:    status,
		Message:   message,
		LatencyMs: float64(latency),
	}
}

func (s *Server) checkBreakerHealth() ComponentHealth {
	st := s.breaker.Stats()
	switch st.State {
	case assets.StateOpen:
		return ComponentHealth{Status: ComponentStatusDegraded, Message: "circuit open", Details: st}
	case assets.StateHalfOpen:
		return ComponentHealth{Status: ComponentStatusDegraded, Message: "circuit half-open", Details: st}
	default:
		return ComponentHealth{Status: ComponentStatusUp, Details: st}
	}
}

// determineOverallHealth calculates overall health from component statuses
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	var (
		downCount     int
		degradedCount int
	)

	for _, component := range components {
		switch component.Status {
		case ComponentStatusDown:
			downCount++
		case ComponentStatusDegraded:
			degradedCount++
		}
	}

	if downCount > 0 {
		return HealthStatusUnhealthy
	}
	if degradedCount > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
