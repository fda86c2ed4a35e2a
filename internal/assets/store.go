// Package assets is the adapter to the external object store that holds the
// gallery images. Every backend lists, uploads and deletes objects under one
// fixed key prefix and derives a display URL for each object. Callers never
// see backend errors directly: every failure wraps ErrUpstream.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the key prefix images are stored under.
const DefaultPrefix = "uploads/"

// ErrUpstream marks a failed call to the asset store.
var ErrUpstream = errors.New("asset store error")

// Asset is one stored image as seen by viewers.
type Asset struct {
	PublicID   string    `json:"public_id"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"-"`
}

// Store is the contract the gallery needs from an object store. List returns
// at most max assets in the store's own order.
type Store interface {
	List(ctx context.Context, max int) ([]Asset, error)
	Upload(ctx context.Context, r io.Reader, size int64, contentType string) (Asset, error)
	Delete(ctx context.Context, publicID string) error
	Ping(ctx context.Context) error
}

// Options are shared by every backend.
type Options struct {
	Bucket        string
	Prefix        string
	PublicBaseURL string        // if set, display URLs are PublicBaseURL + "/" + key
	URLTTL        time.Duration // lifetime of presigned URLs otherwise
}

func (o Options) prefix() string {
	if o.Prefix == "" {
		return DefaultPrefix
	}
	return o.Prefix
}

func (o Options) urlTTL() time.Duration {
	if o.URLTTL <= 0 {
		return 24 * time.Hour
	}
	return o.URLTTL
}

func (o Options) key(publicID string) string {
	return o.prefix() + publicID
}

// publicID strips the prefix from key. Keys outside the prefix or nested
// below it are not gallery assets.
func (o Options) publicID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, o.prefix())
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// publicURL returns the static URL for key, or "" when no public base is set.
func (o Options) publicURL(key string) string {
	if o.PublicBaseURL == "" {
		return ""
	}
	base := strings.TrimRight(o.PublicBaseURL, "/")
	return base + "/" + (&url.URL{Path: key}).EscapedPath()
}

// newPublicID returns a fresh identifier. UUIDs only use [0-9a-f-], which
// keeps them inside the identifier set accepted for deletion.
func newPublicID() string {
	return uuid.NewString()
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
