package server

import (
	"fmt"
	"net/http"

	"image-gallery/internal/gallery"
	"image-gallery/internal/logging"
)

// listImagesHandler handles GET /images with the ordered gallery.
func (s *Server) listImagesHandler(w http.ResponseWriter, r *http.Request) {
	images, err := s.gallery.Images(r.Context())
	if err != nil {
		fail(w, r, "Error fetching images", err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// deleteImageHandler handles DELETE /images/{public_id} and answers with the
// refreshed gallery.
func (s *Server) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("public_id")
	if err := s.gallery.Delete(r.Context(), id); err != nil {
		s.audit(r, AuditEntry{Action: AuditActionDelete, Resource: id, Err: err})
		fail(w, r, "Error deleting image", err)
		return
	}
	s.metrics.RecordDelete()
	s.audit(r, AuditEntry{Action: AuditActionDelete, Resource: id, Success: true})
	s.broadcast(r)

	s.listImagesHandler(w, r)
}

type moveRequest struct {
	FromIndex *int `json:"fromIndex"`
	ToIndex   *int `json:"toIndex"`
}

// moveImageHandler handles POST /images/move {fromIndex, toIndex}.
func (s *Server) moveImageHandler(w http.ResponseWriter, r *http.Request) {
	var body moveRequest
	if err := decodeJSON(r, &body); err != nil {
		fail(w, r, "bad request", err)
		return
	}
	if body.FromIndex == nil || body.ToIndex == nil {
		fail(w, r, "bad request", fmt.Errorf("%w: fromIndex and toIndex are required integers", gallery.ErrValidation))
		return
	}

	move := map[string]any{"from": *body.FromIndex, "to": *body.ToIndex}
	if err := s.gallery.Move(*body.FromIndex, *body.ToIndex); err != nil {
		s.audit(r, AuditEntry{Action: AuditActionMove, Details: move, Err: err})
		fail(w, r, "Error moving image", err)
		return
	}
	s.metrics.RecordMove()
	s.audit(r, AuditEntry{Action: AuditActionMove, Details: move, Success: true})
	s.broadcast(r)

	s.listImagesHandler(w, r)
}

// broadcast tells every viewer to refresh after a successful mutation.
func (s *Server) broadcast(r *http.Request) {
	n := s.hub.BroadcastRefresh()
	logging.Debug("broadcast_refresh", map[string]any{
		"rid":       RequestIDFromContext(r.Context()),
		"delivered": n,
	})
}
