package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"image-gallery/internal/gallery"
)

// multipartOverhead is allowed on top of the file limit for boundaries,
// part headers and other form fields.
const multipartOverhead = 1 << 20

// uploadHandler handles POST /upload with a multipart form carrying the
// image in the "image" field. The file is buffered in memory (it is at most
// maxUploadBytes) so its type can be sniffed before it reaches the store.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)

	data, declared, err := s.readImagePart(r)
	if err != nil {
		s.metrics.RecordUploadError()
		fail(w, r, "bad request", err)
		return
	}

	contentType, err := ValidateImageContentType(declared, data)
	if err != nil {
		s.metrics.RecordUploadError()
		fail(w, r, "bad request", err)
		return
	}

	a, err := s.gallery.Upload(r.Context(), bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		s.metrics.RecordUploadError()
		s.audit(r, AuditEntry{Action: AuditActionUpload, Err: err})
		fail(w, r, "Error uploading image", err)
		return
	}
	s.metrics.RecordUpload(int64(len(data)), time.Since(start))

	s.audit(r, AuditEntry{
		Action:   AuditActionUpload,
		Resource: a.PublicID,
		Success:  true,
		Details:  map[string]any{"bytes": len(data), "content_type": contentType},
	})
	s.broadcast(r)

	writeJSON(w, http.StatusOK, a)
}

// readImagePart returns the bytes and declared content type of the "image"
// part. Other parts are skipped.
func (s *Server) readImagePart(r *http.Request) ([]byte, string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("%w: expected multipart/form-data", gallery.ErrValidation)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", fmt.Errorf("%w: missing image field", gallery.ErrValidation)
		}
		if err != nil {
			return nil, "", badBody(err)
		}
		if part.FormName() != "image" {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, "", badBody(err)
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, s.maxUploadBytes+1))
		if err != nil {
			return nil, "", badBody(err)
		}
		if int64(len(data)) > s.maxUploadBytes {
			return nil, "", &http.MaxBytesError{Limit: s.maxUploadBytes}
		}
		if len(data) == 0 {
			return nil, "", fmt.Errorf("%w: empty file", gallery.ErrValidation)
		}
		return data, part.Header.Get("Content-Type"), nil
	}
}

// badBody keeps size violations distinguishable and turns every other
// read failure into a validation error.
func badBody(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: malformed multipart body", gallery.ErrValidation)
}
