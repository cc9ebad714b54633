// Package backend describes the remote data backend consumed by tourdesk:
// record collections, a binary object store and the auth session.
package backend

import (
	"context"
	"errors"
	"io"

	"github.com/vietddude/tourdesk/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record or object doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrUnknownCollection is returned for collection names outside the schema
	ErrUnknownCollection = errors.New("unknown collection")
)

// Record is a single row of a collection, keyed by column name.
type Record map[string]any

// String returns the value of column as a string, or "" if absent.
func (r Record) String(column string) string {
	if v, ok := r[column].(string); ok {
		return v
	}
	return ""
}

// Filter selects records by column equality. An empty filter matches everything.
type Filter map[string]any

// Eq builds a single-column filter.
func Eq(column string, value any) Filter {
	return Filter{column: value}
}

// Collections is CRUD against named record collections. Failures carry a
// status (see resilience.StatusError) so they can be classified.
type Collections interface {
	// Select returns the records matching filter
	Select(ctx context.Context, collection string, filter Filter) ([]Record, error)

	// Insert stores rec and returns it as persisted
	Insert(ctx context.Context, collection string, rec Record) (Record, error)

	// Update applies patch to the records matching filter and returns how many changed
	Update(ctx context.Context, collection string, filter Filter, patch Record) (int64, error)

	// Delete removes the records matching filter and returns how many were removed
	Delete(ctx context.Context, collection string, filter Filter) (int64, error)
}

// UploadOptions carries object metadata for ObjectStore.Upload.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Upsert allows overwriting an existing object with the same name.
	Upsert bool
}

// ObjectStore stores binary objects in buckets.
type ObjectStore interface {
	// Upload writes size bytes from r to bucket/name and returns the stored path
	Upload(ctx context.Context, bucket, name string, r io.Reader, size int64, opts UploadOptions) (string, error)

	// PublicURL resolves the durable public URL of a stored path
	PublicURL(bucket, path string) string

	// Remove deletes the given paths from bucket
	Remove(ctx context.Context, bucket string, paths ...string) error
}

// Auth exposes the session of the local process.
type Auth interface {
	// Session returns the current session, or nil if signed out
	Session(ctx context.Context) (*domain.Session, error)

	// SignOut drops the current session
	SignOut(ctx context.Context) error
}
