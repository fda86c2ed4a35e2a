// audit.go - Audit trail of manager actions.
//
// Every login, logout and gallery mutation produces one "audit" log line,
// whether it succeeded or not. The trail lives in the application log; there
// is no separate audit store.
package server

import (
	"net/http"

	"image-gallery/internal/logging"
)

// AuditAction names the audited operation
type AuditAction string

const (
	AuditActionLogin        AuditAction = "login"
	AuditActionLogout       AuditAction = "logout"
	AuditActionUpload       AuditAction = "image_upload"
	AuditActionDelete       AuditAction = "image_delete"
	AuditActionMove         AuditAction = "image_move"
	AuditActionParamsUpdate AuditAction = "params_update"
)

// AuditEntry is one audited action.
type AuditEntry struct {
	Action   AuditAction
	Resource string // public id or parameter pair
	Success  bool
	Details  map[string]any
	Err      error
}

// audit writes e together with the request's id and client address.
func (s *Server) audit(r *http.Request, e AuditEntry) {
	fields := map[string]any{
		"rid":     RequestIDFromContext(r.Context()),
		"action":  string(e.Action),
		"success": e.Success,
		"ip":      s.clientIP(r),
		"ua":      r.UserAgent(),
	}
	if e.Resource != "" {
		fields["resource"] = e.Resource
	}
	for k, v := range e.Details {
		fields[k] = v
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}

	if e.Success {
		logging.Info("audit", fields)
		return
	}
	logging.Warn("audit", fields)
}
