package worker

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/metrics"
)

// Orphans keeps the list of objects that could not be removed in the
// orphaned_objects collection.
type Orphans struct {
	records backend.Collections
	exec    *resilience.Executor
	log     *slog.Logger
	now     func() time.Time
}

// NewOrphans creates an orphan list stored in records.
func NewOrphans(records backend.Collections, exec *resilience.Executor, log *slog.Logger) *Orphans {
	if log == nil {
		log = slog.Default()
	}
	return &Orphans{
		records: records,
		exec:    exec,
		log:     log.With("component", "orphans"),
		now:     time.Now,
	}
}

// RecordOrphan stores ref for a later removal. Recording the same object
// twice keeps the first entry.
func (o *Orphans) RecordOrphan(ctx context.Context, ref domain.AssetRef, reason string) error {
	rec := backend.Record{
		"id":         uuid.NewString(),
		"bucket":     ref.Bucket,
		"path":       ref.Path,
		"reason":     reason,
		"attempts":   0,
		"created_at": o.now().UTC(),
	}
	err := resilience.Do(ctx, o.exec, "orphans.record", func(ctx context.Context) error {
		_, err := o.records.Insert(ctx, domain.CollectionOrphanedObjects, rec)
		if code, ok := resilience.StatusCode(err); ok && code == 409 {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	metrics.OrphanedObjectsTotal.WithLabelValues("recorded").Inc()
	o.log.Info("Orphaned object recorded", "bucket", ref.Bucket, "path", ref.Path, "reason", reason)
	return nil
}

// List returns every recorded orphan, oldest first.
func (o *Orphans) List(ctx context.Context) ([]domain.OrphanedObject, error) {
	return resilience.Execute(ctx, o.exec, resilience.NewOperation("orphans.list",
		func(ctx context.Context) ([]domain.OrphanedObject, error) {
			rows, err := o.records.Select(ctx, domain.CollectionOrphanedObjects, backend.Filter{})
			if err != nil {
				return nil, err
			}
			out := make([]domain.OrphanedObject, 0, len(rows))
			for _, rec := range rows {
				out = append(out, orphanFromRecord(rec))
			}
			sortOrphans(out)
			return out, nil
		}))
}

// Forget drops the entry with id.
func (o *Orphans) Forget(ctx context.Context, id string) error {
	return resilience.Do(ctx, o.exec, "orphans.forget", func(ctx context.Context) error {
		_, err := o.records.Delete(ctx, domain.CollectionOrphanedObjects, backend.Eq("id", id))
		return err
	})
}

// bumpAttempts records one more failed removal of the entry with id.
func (o *Orphans) bumpAttempts(ctx context.Context, orphan domain.OrphanedObject) error {
	return resilience.Do(ctx, o.exec, "orphans.bump", func(ctx context.Context) error {
		_, err := o.records.Update(ctx, domain.CollectionOrphanedObjects,
			backend.Eq("id", orphan.ID), backend.Record{"attempts": orphan.Attempts + 1})
		return err
	})
}

func orphanFromRecord(rec backend.Record) domain.OrphanedObject {
	orphan := domain.OrphanedObject{
		ID:     rec.String("id"),
		Bucket: rec.String("bucket"),
		Path:   rec.String("path"),
		Reason: rec.String("reason"),
	}
	switch v := rec["attempts"].(type) {
	case int:
		orphan.Attempts = v
	case int32:
		orphan.Attempts = int(v)
	case int64:
		orphan.Attempts = int(v)
	case string:
		orphan.Attempts, _ = strconv.Atoi(v)
	}
	switch v := rec["created_at"].(type) {
	case time.Time:
		orphan.CreatedAt = v
	case string:
		orphan.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	return orphan
}

func sortOrphans(orphans []domain.OrphanedObject) {
	slices.SortFunc(orphans, func(a, b domain.OrphanedObject) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
