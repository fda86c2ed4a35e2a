package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config holds settings for an AWS S3 bucket, or any S3 API reachable at
// Endpoint (path-style addressing is used when Endpoint is set).
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Options
}

// S3Store keeps gallery images in an S3 bucket via aws-sdk-go-v2.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	opts    Options
}

// NewS3Store builds the S3 client and checks that the bucket is reachable.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 configuration incomplete")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	s := &S3Store{client: client, presign: s3.NewPresignClient(client), opts: cfg.Options}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) List(ctx context.Context, max int) ([]Asset, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.opts.Bucket),
		Prefix:    aws.String(s.opts.prefix()),
		Delimiter: aws.String("/"),
	}
	if max > 0 && max < 1000 {
		in.MaxKeys = aws.Int32(int32(max))
	}

	out := make([]Asset, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, upstream("list objects", describe(err))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id, ok := s.opts.publicID(key)
			if !ok {
				continue
			}
			u, err := s.url(ctx, key)
			if err != nil {
				return nil, err
			}
			out = append(out, Asset{PublicID: id, URL: u, UploadedAt: aws.ToTime(obj.LastModified)})
			if max > 0 && len(out) >= max {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *S3Store) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (Asset, error) {
	id := newPublicID()
	key := s.opts.key(id)

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Asset{}, upstream("put object", describe(err))
	}

	u, err := s.url(ctx, key)
	if err != nil {
		return Asset{}, err
	}
	return Asset{PublicID: id, URL: u, UploadedAt: time.Now()}, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(s.opts.key(publicID)),
	})
	if err != nil && !isNotFound(err) {
		return upstream("delete object", describe(err))
	}
	return nil
}

func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.opts.Bucket)}); err != nil {
		if isNotFound(err) {
			return upstream("head bucket", fmt.Errorf("s3 bucket does not exist: %s", s.opts.Bucket))
		}
		return upstream("head bucket", describe(err))
	}
	return nil
}

func (s *S3Store) url(ctx context.Context, key string) (string, error) {
	if u := s.opts.publicURL(key); u != "" {
		return u, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.urlTTL()))
	if err != nil {
		return "", upstream("presign", err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}

// describe prefixes S3 API errors with their code and message. Other errors
// pass through unchanged.
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}
