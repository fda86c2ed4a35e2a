// prometheus.go - Prometheus metrics exporter
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"image-gallery/internal/assets"
)

// PrometheusHandler serves the metrics in Prometheus text format.
func (s *Server) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.renderPrometheus()))
	}
}

func (s *Server) renderPrometheus() string {
	snapshot := s.metrics.Snapshot()
	hub := s.hub.Stats()

	var out strings.Builder
	metric := func(name, typ, help string, value any) {
		fmt.Fprintf(&out, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, typ, name, value)
	}

	out.WriteString("# HELP gallery_info Application version info\n")
	out.WriteString("# TYPE gallery_info gauge\n")
	fmt.Fprintf(&out, "gallery_info{version=\"%s\",commit=\"%s\"} 1\n\n",
		prometheusLabel(s.build.Version), prometheusLabel(s.build.Commit))

	metric("gallery_requests_total", "counter", "Total number of HTTP requests", snapshot.RequestsTotal)
	out.WriteString("# HELP gallery_request_errors_total HTTP error responses by class\n")
	out.WriteString("# TYPE gallery_request_errors_total counter\n")
	fmt.Fprintf(&out, "gallery_request_errors_total{class=\"4xx\"} %d\n", snapshot.RequestErrors4xx)
	fmt.Fprintf(&out, "gallery_request_errors_total{class=\"5xx\"} %d\n\n", snapshot.RequestErrors5xx)

	metric("gallery_uploads_total", "counter", "Total number of image uploads", snapshot.UploadsTotal)
	metric("gallery_upload_bytes_total", "counter", "Total bytes uploaded", snapshot.UploadBytesTotal)
	metric("gallery_upload_errors_total", "counter", "Total number of rejected or failed uploads", snapshot.UploadErrorsTotal)
	metric("gallery_deletes_total", "counter", "Total number of image deletions", snapshot.DeletesTotal)
	metric("gallery_moves_total", "counter", "Total number of reorder operations", snapshot.MovesTotal)
	metric("gallery_param_updates_total", "counter", "Total number of parameter updates", snapshot.ParamUpdatesTotal)

	metric("gallery_login_success_total", "counter", "Total number of successful logins", snapshot.LoginSuccessTotal)
	metric("gallery_login_failures_total", "counter", "Total number of failed logins", snapshot.LoginFailuresTotal)
	if s.gate != nil {
		metric("gallery_sessions", "gauge", "Sessions currently held in the session table", s.gate.Len())
	}

	metric("gallery_live_subscribers", "gauge", "Connected live-update subscribers", hub.Subscribers)
	metric("gallery_broadcasts_total", "counter", "Total number of refresh broadcasts", hub.Broadcasts)
	metric("gallery_subscribers_dropped_total", "counter", "Subscribers dropped after a failed send", hub.Dropped)

	if s.breaker != nil {
		st := s.breaker.Stats()
		out.WriteString("# HELP gallery_store_circuit_state Asset store circuit breaker state\n")
		out.WriteString("# TYPE gallery_store_circuit_state gauge\n")
		for _, state := range []assets.CircuitState{assets.StateClosed, assets.StateOpen, assets.StateHalfOpen} {
			v := 0
			if st.State == state {
				v = 1
			}
			fmt.Fprintf(&out, "gallery_store_circuit_state{state=\"%s\"} %d\n", state, v)
		}
		out.WriteString("\n")
		metric("gallery_store_rejected_total", "counter", "Store calls rejected by the open circuit", st.RejectedRequests)
	}

	metric("gallery_uptime_seconds", "counter", "Application uptime in seconds",
		fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))

	return out.String()
}

// Helper function to format label safely for Prometheus
func prometheusLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "\\n")
	return value
}
