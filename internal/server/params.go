package server

import (
	"net/http"

	"image-gallery/internal/gallery"
)

func (s *Server) getParamsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gallery.Params())
}

// updateParamsHandler handles POST /update-params {pID, wnr} and echoes the
// stored values.
func (s *Server) updateParamsHandler(w http.ResponseWriter, r *http.Request) {
	var body gallery.Params
	if err := decodeJSON(r, &body); err != nil {
		fail(w, r, "bad request", err)
		return
	}

	p, err := s.gallery.UpdateParams(body)
	if err != nil {
		s.audit(r, AuditEntry{Action: AuditActionParamsUpdate, Err: err})
		fail(w, r, "Error updating params", err)
		return
	}
	s.metrics.RecordParamsUpdate()
	s.audit(r, AuditEntry{Action: AuditActionParamsUpdate, Resource: p.PID + "/" + p.Wnr, Success: true})
	s.broadcast(r)

	writeJSON(w, http.StatusOK, p)
}
