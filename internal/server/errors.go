// errors.go - JSON responses and translation of core errors to HTTP status.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"image-gallery/internal/assets"
	"image-gallery/internal/gallery"
	"image-gallery/internal/logging"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail writes the response for err. Validation problems are reported to
// the client as they are; store and unexpected failures are logged with the
// request id and answered with msg only.
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, gallery.ErrValidation), errors.Is(err, gallery.ErrIndex):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	default:
		fields := map[string]any{
			"rid":    RequestIDFromContext(r.Context()),
			"method": r.Method,
			"path":   r.URL.Path,
		}
		if errors.Is(err, assets.ErrUpstream) {
			fields["upstream"] = true
		}
		logging.Error(msg, fields, err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON reads a JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", gallery.ErrValidation)
	}
	return nil
}
