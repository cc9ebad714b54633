// Package trips reads and writes trip records and their assets. Every
// remote call is a resilient operation.
package trips

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tourdesk/internal/cascade"
	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/upload"
)

// NewTrip is the input of Create.
type NewTrip struct {
	Title       string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
}

// Patch lists the fields Update changes; nil fields are left alone.
type Patch struct {
	Title       *string
	Destination *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type Service struct {
	records backend.Collections
	exec    *resilience.Executor
	uploads *upload.Pipeline
	cascade *cascade.Orchestrator
	log     *slog.Logger
	now     func() time.Time
}

// NewService creates a trip service that reads and writes records through
// exec, stores assets with uploads and deletes trips with orchestrator.
func NewService(
	records backend.Collections,
	exec *resilience.Executor,
	uploads *upload.Pipeline,
	orchestrator *cascade.Orchestrator,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		records: records,
		exec:    exec,
		uploads: uploads,
		cascade: orchestrator,
		log:     log.With("component", "trips"),
		now:     time.Now,
	}
}

// Get returns the trip with id, or a 404 StatusError wrapping backend.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Trip, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &resilience.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	return resilience.Execute(ctx, s.exec, resilience.NewOperation("trips.get",
		func(ctx context.Context) (*domain.Trip, error) {
			rows, err := s.records.Select(ctx, domain.CollectionTrips, backend.Eq("id", id))
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return nil, notFound(id)
			}
			return tripFromRecord(rows[0])
		}))
}

// List returns all trips ordered by start date, then title.
func (s *Service) List(ctx context.Context) ([]*domain.Trip, error) {
	trips, err := resilience.Execute(ctx, s.exec, resilience.NewOperation("trips.list",
		func(ctx context.Context) ([]*domain.Trip, error) {
			rows, err := s.records.Select(ctx, domain.CollectionTrips, nil)
			if err != nil {
				return nil, err
			}
			out := make([]*domain.Trip, 0, len(rows))
			for _, rec := range rows {
				t, err := tripFromRecord(rec)
				if err != nil {
					return nil, err
				}
				out = append(out, t)
			}
			return out, nil
		}))
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(trips, func(a, b *domain.Trip) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return trips, nil
}

// Create stores a new trip. The ID is assigned before the first attempt, so a
// retry after a lost response finds the already stored row instead of
// creating a second one.
func (s *Service) Create(ctx context.Context, in NewTrip) (*domain.Trip, error) {
	if err := validateTrip(in.Title, in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	trip := &domain.Trip{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Destination: strings.TrimSpace(in.Destination),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := resilience.Execute(ctx, s.exec, resilience.NewOperation("trips.create",
		func(ctx context.Context) (*domain.Trip, error) {
			rec, err := s.records.Insert(ctx, domain.CollectionTrips, tripRecord(trip))
			if code, ok := resilience.StatusCode(err); ok && code == 409 {
				rows, selErr := s.records.Select(ctx, domain.CollectionTrips, backend.Eq("id", trip.ID))
				if selErr == nil && len(rows) == 1 {
					return tripFromRecord(rows[0])
				}
			}
			if err != nil {
				return nil, err
			}
			return tripFromRecord(rec)
		}))
	if err != nil {
		return nil, err
	}
	s.log.Info("Trip created", "trip_id", created.ID, "title", created.Title)
	return created, nil
}

// Update applies patch to the trip and returns the stored result.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*domain.Trip, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Destination != nil {
		next.Destination = strings.TrimSpace(*patch.Destination)
	}
	if patch.StartDate != nil {
		next.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		next.EndDate = *patch.EndDate
	}
	if err := validateTrip(next.Title, next.StartDate, next.EndDate); err != nil {
		return nil, err
	}

	fields := backend.Record{
		"title":       next.Title,
		"destination": next.Destination,
		"start_date":  dateValue(next.StartDate),
		"end_date":    dateValue(next.EndDate),
		"updated_at":  s.now().UTC(),
	}
	if err := s.patch(ctx, "trips.update", id, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ChangeCover uploads asset as the trip's cover image. The previous cover is
// removed only once the trip points at the new one.
func (s *Service) ChangeCover(ctx context.Context, id string, asset upload.Asset, state upload.LocalState) (*domain.Trip, error) {
	trip, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ref, err := s.uploads.Replace(ctx, trip.Cover, asset, upload.KindImage, "", state,
		func(ctx context.Context, ref domain.AssetRef) error {
			fields := coverPatch(&ref)
			fields["updated_at"] = s.now().UTC()
			return s.patch(ctx, "trips.set_cover", id, fields)
		})
	if err != nil {
		return nil, err
	}

	s.log.Info("Trip cover changed", "trip_id", id, "path", ref.Path)
	return s.Get(ctx, id)
}

// RemoveCover clears the trip's cover and deletes the stored image.
func (s *Service) RemoveCover(ctx context.Context, id string) error {
	trip, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if trip.Cover == nil {
		return nil
	}

	fields := coverPatch(nil)
	fields["updated_at"] = s.now().UTC()
	if err := s.patch(ctx, "trips.clear_cover", id, fields); err != nil {
		return err
	}
	s.uploads.Discard(ctx, *trip.Cover, "cover removed")
	return nil
}

// AttachDocument uploads a PDF for ownerID and records it.
func (s *Service) AttachDocument(ctx context.Context, ownerID string, asset upload.Asset, state upload.LocalState) (*domain.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &resilience.ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}

	var doc *domain.Document
	_, err := s.uploads.Replace(ctx, nil, asset, upload.KindDocument, ownerID, state,
		func(ctx context.Context, ref domain.AssetRef) error {
			doc = &domain.Document{
				ID:        uuid.NewString(),
				OwnerID:   ownerID,
				Asset:     ref,
				CreatedAt: s.now().UTC(),
			}
			return resilience.Do(ctx, s.exec, "documents.create", func(ctx context.Context) error {
				_, err := s.records.Insert(ctx, domain.CollectionDocuments, documentRecord(doc))
				if code, ok := resilience.StatusCode(err); ok && code == 409 {
					return nil
				}
				return err
			})
		})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Documents lists the documents attached to ownerID.
func (s *Service) Documents(ctx context.Context, ownerID string) ([]*domain.Document, error) {
	return resilience.Execute(ctx, s.exec, resilience.NewOperation("documents.list",
		func(ctx context.Context) ([]*domain.Document, error) {
			rows, err := s.records.Select(ctx, domain.CollectionDocuments, backend.Eq("owner_id", ownerID))
			if err != nil {
				return nil, err
			}
			docs := make([]*domain.Document, len(rows))
			for i, rec := range rows {
				docs[i] = documentFromRecord(rec)
			}
			return docs, nil
		}))
}

// Delete removes the trip with everything referencing it, then discards its
// cover image. The permission check runs before the trip is read, so callers
// that may not delete learn nothing about whether it exists.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &resilience.ValidationError{Field: "trip_id", Reason: "must not be empty"}
	}
	if err := s.cascade.Authorize(ctx, id); err != nil {
		return err
	}
	trip, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cascade.Run(ctx, cascade.TripPlan(id)); err != nil {
		return err
	}

	if trip.Cover != nil {
		s.uploads.Discard(ctx, *trip.Cover, "trip deleted")
	}
	s.log.Info("Trip deleted", "trip_id", id)
	return nil
}

func (s *Service) patch(ctx context.Context, name, id string, fields backend.Record) error {
	return resilience.Do(ctx, s.exec, name, func(ctx context.Context) error {
		n, err := s.records.Update(ctx, domain.CollectionTrips, backend.Eq("id", id), fields)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(id)
		}
		return nil
	})
}

func notFound(id string) error {
	return resilience.NewStatusError(404, fmt.Sprintf("trip %s not found", id), backend.ErrNotFound)
}

func validateTrip(title string, start, end time.Time) error {
	if strings.TrimSpace(title) == "" {
		return &resilience.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return &resilience.ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}
