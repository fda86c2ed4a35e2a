// validation.go - Upload content checks
package server

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"image-gallery/internal/gallery"
)

// allowedImageTypes are the sniffed types accepted for upload.
var allowedImageTypes = map[string]bool{
	"image/jpeg":   true,
	"image/png":    true,
	"image/gif":    true,
	"image/webp":   true,
	"image/bmp":    true,
	"image/avif":   true,
	"image/x-icon": true,
}

// ValidateImageContentType decides the content type stored for an upload.
// The declared type from the part header must be an image type (or absent,
// or application/octet-stream), and the content itself must sniff as one
// of allowedImageTypes. The sniffed type wins.
func ValidateImageContentType(declared string, data []byte) (string, error) {
	if declared = strings.TrimSpace(declared); declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", fmt.Errorf("%w: invalid content type", gallery.ErrValidation)
		}
		if mt != "application/octet-stream" && !strings.HasPrefix(mt, "image/") {
			return "", fmt.Errorf("%w: only image uploads are allowed (got %s)", gallery.ErrValidation, mt)
		}
	}

	sniffed := DetectContentType(data)
	if !allowedImageTypes[sniffed] {
		return "", fmt.Errorf("%w: file content is not a supported image", gallery.ErrValidation)
	}
	return sniffed, nil
}

// DetectContentType uses http.DetectContentType on the first 512 bytes and
// drops any parameters.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i > 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
