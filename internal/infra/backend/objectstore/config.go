// Package objectstore implements backend.ObjectStore on MinIO/S3 and Google
// Cloud Storage.
package objectstore

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

const (
	DriverMinIO  = "minio"
	DriverGCS    = "gcs"
	DriverMemory = "memory"
)

type Config struct {
	Driver string `yaml:"driver"`

	// MinIO / S3
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`

	// GCS
	CredentialsFile string `yaml:"credentials_file"`

	// PublicBaseURL overrides the host used for public URLs (e.g. a CDN).
	PublicBaseURL string `yaml:"public_base_url"`

	BucketImages    string `yaml:"bucket_images"`
	BucketDocuments string `yaml:"bucket_documents"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BucketImages) == "" {
		return errors.New("images bucket is required")
	}
	if strings.TrimSpace(c.BucketDocuments) == "" {
		return errors.New("documents bucket is required")
	}

	switch c.Driver {
	case DriverMinIO:
		if strings.TrimSpace(c.Endpoint) == "" {
			return errors.New("endpoint is required")
		}
		if strings.TrimSpace(c.AccessKey) == "" {
			return errors.New("access key is required")
		}
		if strings.TrimSpace(c.SecretKey) == "" {
			return errors.New("secret key is required")
		}
		if strings.Contains(c.Endpoint, "://") {
			return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
		}
	case DriverGCS, DriverMemory:
	default:
		return fmt.Errorf("unknown object store driver: %q", c.Driver)
	}

	if c.PublicBaseURL != "" && !strings.HasPrefix(c.PublicBaseURL, "http") {
		return fmt.Errorf("public base url must be http(s): %q", c.PublicBaseURL)
	}
	return nil
}

// Buckets returns the configured bucket names.
func (c Config) Buckets() []string {
	return []string{c.BucketImages, c.BucketDocuments}
}

// objectURL joins base, bucket and path, escaping each path segment.
func objectURL(base, bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	prefix := strings.TrimRight(base, "/")
	if bucket != "" {
		prefix += "/" + bucket
	}
	return prefix + "/" + strings.Join(segments, "/")
}

// wrapTransport marks transport-level failures as network errors.
func wrapTransport(op string, err error) error {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, resilience.ErrNetwork, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
