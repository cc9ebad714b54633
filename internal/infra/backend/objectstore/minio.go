package objectstore

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// MinIO implements backend.ObjectStore on an S3-compatible server.
type MinIO struct {
	client     *minio.Client
	publicBase string
}

// NewMinIO creates a MinIO-backed object store.
func NewMinIO(cfg Config) (*MinIO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}

	return &MinIO{client: client, publicBase: base}, nil
}

// Upload writes the object. Without opts.Upsert an existing object is a 409.
func (m *MinIO) Upload(
	ctx context.Context,
	bucket, name string,
	r io.Reader,
	size int64,
	opts backend.UploadOptions,
) (string, error) {
	if !opts.Upsert {
		_, err := m.client.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
		if err == nil {
			return "", resilience.NewStatusError(409, fmt.Sprintf("object %s/%s already exists", bucket, name), nil)
		}
		if minio.ToErrorResponse(err).Code != minio.NoSuchKey {
			return "", translateMinIO("stat", err)
		}
	}

	info, err := m.client.PutObject(ctx, bucket, name, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return "", translateMinIO("upload", err)
	}
	return info.Key, nil
}

func (m *MinIO) PublicURL(bucket, path string) string {
	return objectURL(m.publicBase, bucket, path)
}

func (m *MinIO) Remove(ctx context.Context, bucket string, paths ...string) error {
	for _, p := range paths {
		if err := m.client.RemoveObject(ctx, bucket, p, minio.RemoveObjectOptions{}); err != nil {
			return translateMinIO("remove", err)
		}
	}
	return nil
}

// EnsureBuckets creates the configured buckets if missing.
func (m *MinIO) EnsureBuckets(ctx context.Context, cfg Config) error {
	for _, bucket := range cfg.Buckets() {
		exists, err := m.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("bucket exists %s: %w", bucket, translateMinIO("stat", err))
		}
		if exists {
			continue
		}
		if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", bucket, translateMinIO("create", err))
		}
	}
	return nil
}

// Health checks that the server answers.
func (m *MinIO) Health(ctx context.Context, cfg Config) error {
	_, err := m.client.BucketExists(ctx, cfg.BucketImages)
	if err != nil {
		return translateMinIO("health", err)
	}
	return nil
}

func translateMinIO(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode > 0 {
		msg := resp.Message
		if msg == "" {
			msg = resp.Code
		}
		if resp.StatusCode == http.StatusRequestEntityTooLarge || resp.Code == "EntityTooLarge" {
			return resilience.NewStatusError(413, op+": payload too large", err)
		}
		return resilience.NewStatusError(resp.StatusCode, op+": "+msg, err)
	}
	return wrapTransport(op, err)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
