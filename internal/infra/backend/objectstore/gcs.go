package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

const gcsPublicBase = "https://storage.googleapis.com"

// GCS implements backend.ObjectStore on Google Cloud Storage.
type GCS struct {
	client     *storage.Client
	publicBase string
}

// NewGCS creates a GCS-backed object store. Without a credentials file the
// client falls back to application default credentials.
func NewGCS(ctx context.Context, cfg Config) (*GCS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		base = gcsPublicBase
	}
	return &GCS{client: client, publicBase: base}, nil
}

func (g *GCS) Upload(
	ctx context.Context,
	bucket, name string,
	r io.Reader,
	size int64,
	opts backend.UploadOptions,
) (string, error) {
	obj := g.client.Bucket(bucket).Object(name)
	if !opts.Upsert {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.CacheControl = opts.CacheControl
	if size > 0 && size < int64(googleapi.DefaultUploadChunkSize) {
		w.ChunkSize = 0 // single request upload
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", translateGCS("upload", err)
	}
	if err := w.Close(); err != nil {
		return "", translateGCS("upload", err)
	}
	return name, nil
}

func (g *GCS) PublicURL(bucket, path string) string {
	if g.publicBase != gcsPublicBase {
		// A CDN domain fronts a single bucket.
		return objectURL(g.publicBase, "", path)
	}
	return objectURL(g.publicBase, bucket, path)
}

func (g *GCS) Remove(ctx context.Context, bucket string, paths ...string) error {
	for _, p := range paths {
		err := g.client.Bucket(bucket).Object(p).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return translateGCS("remove", err)
		}
	}
	return nil
}

// Health checks that the images bucket is reachable.
func (g *GCS) Health(ctx context.Context, cfg Config) error {
	if _, err := g.client.Bucket(cfg.BucketImages).Attrs(ctx); err != nil {
		return translateGCS("health", err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func translateGCS(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 412 {
			return resilience.NewStatusError(409, op+": object already exists", err)
		}
		return resilience.NewStatusError(apiErr.Code, op+": "+apiErr.Message, err)
	}
	if errors.Is(err, storage.ErrBucketNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
		return resilience.NewStatusError(404, op+": "+err.Error(), backend.ErrNotFound)
	}
	return wrapTransport(op, err)
}
