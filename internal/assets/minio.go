package assets

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds connection settings for a MinIO (or any S3-compatible)
// server reached through minio-go.
type MinioConfig struct {
	Endpoint  string // "minio:9000" or "http(s)://minio:9000"
	AccessKey string
	SecretKey string
	Options
}

// MinioStore keeps gallery images in one bucket of a MinIO server.
type MinioStore struct {
	client *minio.Client
	opts   Options
}

// NormaliseEndpoint accepts either "host:port" or an http(s) URL and returns
// the host:port part along with whether TLS should be used.
func NormaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewMinioStore connects to MinIO and checks that the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := NormaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	s := &MinioStore{client: client, opts: cfg.Options}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStore) List(ctx context.Context, max int) ([]Asset, error) {
	// Stops the listing goroutine once enough objects were read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]Asset, 0)
	for obj := range s.client.ListObjects(ctx, s.opts.Bucket, minio.ListObjectsOptions{
		Prefix:    s.opts.prefix(),
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, upstream("list objects", obj.Err)
		}
		id, ok := s.opts.publicID(obj.Key)
		if !ok {
			continue
		}
		u, err := s.url(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, Asset{PublicID: id, URL: u, UploadedAt: obj.LastModified})
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}

func (s *MinioStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (Asset, error) {
	id := newPublicID()
	key := s.opts.key(id)

	if _, err := s.client.PutObject(ctx, s.opts.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return Asset{}, upstream("put object", err)
	}

	u, err := s.url(ctx, key)
	if err != nil {
		return Asset{}, err
	}
	return Asset{PublicID: id, URL: u, UploadedAt: time.Now()}, nil
}

func (s *MinioStore) Delete(ctx context.Context, publicID string) error {
	if err := s.client.RemoveObject(ctx, s.opts.Bucket, s.opts.key(publicID), minio.RemoveObjectOptions{}); err != nil {
		return upstream("remove object", err)
	}
	return nil
}

// Ping checks the bucket is reachable and exists.
func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.opts.Bucket)
	if err != nil {
		return upstream("bucket exists", err)
	}
	if !exists {
		return upstream("bucket exists", fmt.Errorf("minio bucket does not exist: %s", s.opts.Bucket))
	}
	return nil
}

func (s *MinioStore) url(ctx context.Context, key string) (string, error) {
	if u := s.opts.publicURL(key); u != "" {
		return u, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.opts.Bucket, key, s.opts.urlTTL(), nil)
	if err != nil {
		return "", upstream("presign", err)
	}
	return u.String(), nil
}
