package trips

import (
	"fmt"
	"time"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
)

const dateLayout = "2006-01-02"

func tripRecord(t *domain.Trip) backend.Record {
	rec := backend.Record{
		"id":          t.ID,
		"title":       t.Title,
		"destination": t.Destination,
		"start_date":  dateValue(t.StartDate),
		"end_date":    dateValue(t.EndDate),
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
	for k, v := range coverPatch(t.Cover) {
		rec[k] = v
	}
	return rec
}

func coverPatch(ref *domain.AssetRef) backend.Record {
	if ref == nil {
		return backend.Record{
			"cover_locator": nil,
			"cover_name":    nil,
			"cover_bucket":  nil,
			"cover_path":    nil,
		}
	}
	return backend.Record{
		"cover_locator": ref.Locator,
		"cover_name":    ref.DisplayName,
		"cover_bucket":  ref.Bucket,
		"cover_path":    ref.Path,
	}
}

func tripFromRecord(rec backend.Record) (*domain.Trip, error) {
	t := &domain.Trip{
		ID:          rec.String("id"),
		Title:       rec.String("title"),
		Destination: rec.String("destination"),
	}
	if t.ID == "" {
		return nil, fmt.Errorf("trip record without id")
	}

	var err error
	if t.StartDate, err = timeValue(rec, "start_date"); err != nil {
		return nil, err
	}
	if t.EndDate, err = timeValue(rec, "end_date"); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = timeValue(rec, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = timeValue(rec, "updated_at"); err != nil {
		return nil, err
	}

	if path := rec.String("cover_path"); path != "" {
		t.Cover = &domain.AssetRef{
			Locator:     rec.String("cover_locator"),
			DisplayName: rec.String("cover_name"),
			Bucket:      rec.String("cover_bucket"),
			Path:        path,
		}
	}
	return t, nil
}

func documentRecord(d *domain.Document) backend.Record {
	return backend.Record{
		"id":           d.ID,
		"owner_id":     d.OwnerID,
		"locator":      d.Asset.Locator,
		"display_name": d.Asset.DisplayName,
		"bucket":       d.Asset.Bucket,
		"path":         d.Asset.Path,
		"created_at":   d.CreatedAt,
	}
}

func documentFromRecord(rec backend.Record) *domain.Document {
	created, _ := timeValue(rec, "created_at")
	return &domain.Document{
		ID:      rec.String("id"),
		OwnerID: rec.String("owner_id"),
		Asset: domain.AssetRef{
			Locator:     rec.String("locator"),
			DisplayName: rec.String("display_name"),
			Bucket:      rec.String("bucket"),
			Path:        rec.String("path"),
		},
		CreatedAt: created,
	}
}

// dateValue stores a zero date as NULL.
func dateValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Truncate(24 * time.Hour)
}

func timeValue(rec backend.Record, column string) (time.Time, error) {
	switch v := rec[column].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, nil
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("column %s: %w", column, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("column %s: unexpected type %T", column, v)
	}
}
