// Package upload transfers user-selected assets to the object store with
// validation, collision-free naming, retries and local-state rollback.
package upload

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// Kind selects the rule an asset is validated and stored with.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

const (
	MiB = 1 << 20

	DefaultImageMaxBytes    = 5 * MiB
	DefaultDocumentMaxBytes = 10 * MiB
	DefaultTimeout          = 60 * time.Second
	DefaultMaxAttempts      = 3
)

// Rule constrains one asset kind and tunes its transfer.
type Rule struct {
	// MediaPrefix accepts any media type with this prefix (e.g. "image/").
	MediaPrefix string
	// MediaExact accepts exactly this media type (e.g. "application/pdf").
	MediaExact   string
	MaxBytes     int64
	Bucket       string
	CacheControl string
	Timeout      time.Duration
	MaxAttempts  int
}

// DefaultRules returns the image and document rules for the given buckets.
func DefaultRules(imagesBucket, documentsBucket string) map[Kind]Rule {
	return map[Kind]Rule{
		KindImage: {
			MediaPrefix:  "image/",
			MaxBytes:     DefaultImageMaxBytes,
			Bucket:       imagesBucket,
			CacheControl: "public, max-age=3600",
			Timeout:      DefaultTimeout,
			MaxAttempts:  DefaultMaxAttempts,
		},
		KindDocument: {
			MediaExact:   "application/pdf",
			MaxBytes:     DefaultDocumentMaxBytes,
			Bucket:       documentsBucket,
			CacheControl: "private, max-age=0",
			Timeout:      DefaultTimeout,
			MaxAttempts:  DefaultMaxAttempts,
		},
	}
}

// Asset is a file selected for upload.
type Asset struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the asset size in bytes.
func (a Asset) Size() int64 {
	return int64(len(a.Data))
}

func (r Rule) accepts(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	mediaType = strings.ToLower(mediaType)
	if r.MediaExact != "" {
		return mediaType == r.MediaExact
	}
	return strings.HasPrefix(mediaType, r.MediaPrefix) && len(mediaType) > len(r.MediaPrefix)
}

func (r Rule) expected() string {
	if r.MediaExact != "" {
		return r.MediaExact
	}
	return r.MediaPrefix + "*"
}

// validate checks the asset against rule before any network call.
func validate(asset Asset, kind Kind, rule Rule) error {
	if !rule.accepts(asset.ContentType) {
		return &Error{
			Reason: ReasonInvalidType,
			Kind:   kind,
			Err: &resilience.ValidationError{
				Field:  "content_type",
				Reason: fmt.Sprintf("%q is not %s", asset.ContentType, rule.expected()),
			},
		}
	}
	if asset.Size() == 0 {
		return &Error{
			Reason: ReasonEmpty,
			Kind:   kind,
			Err:    &resilience.ValidationError{Field: "size", Reason: "file is empty"},
		}
	}
	if rule.MaxBytes > 0 && asset.Size() > rule.MaxBytes {
		return &Error{
			Reason: ReasonTooLarge,
			Kind:   kind,
			Limit:  rule.MaxBytes,
			Err: &resilience.ValidationError{
				Field:  "size",
				Reason: fmt.Sprintf("%d bytes exceeds %d", asset.Size(), rule.MaxBytes),
			},
		}
	}
	return nil
}
