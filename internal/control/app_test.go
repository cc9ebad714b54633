package control

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/vietddude/tourdesk/internal/auth"
	"github.com/vietddude/tourdesk/internal/core/config"
	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/backend/memory"
	"github.com/vietddude/tourdesk/internal/infra/backend/objectstore"
	"github.com/vietddude/tourdesk/internal/trips"
	"github.com/vietddude/tourdesk/internal/upload"
)

func memoryConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		ObjectStore: objectstore.Config{
			Driver:          objectstore.DriverMemory,
			BucketImages:    "trip-images",
			BucketDocuments: "trip-documents",
		},
		Auth: auth.Config{Secret: "test-secret", SessionTTL: time.Hour},
		Resilience: config.ResilienceConfig{
			MaxAttempts:   3,
			Timeout:       time.Second,
			UploadTimeout: time.Second,
			BackoffBase:   time.Millisecond,
			BackoffCap:    2 * time.Millisecond,
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(context.Background(), memoryConfig(), Options{Log: slog.New(slog.DiscardHandler)})
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_RequiresSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.Secret = ""
	if _, err := NewApp(context.Background(), cfg, Options{Log: slog.New(slog.DiscardHandler)}); err == nil {
		t.Fatal("expected an error without an auth secret")
	}
}

func TestApp_MemoryBackends(t *testing.T) {
	app := newTestApp(t)

	if _, ok := app.Records.(*memory.Collections); !ok {
		t.Errorf("expected memory collections, got %T", app.Records)
	}
	if _, ok := app.Objects.(*memory.ObjectStore); !ok {
		t.Errorf("expected memory object store, got %T", app.Objects)
	}
	if _, ok := app.Sessions.(*memory.Sessions); !ok {
		t.Errorf("expected memory sessions, got %T", app.Sessions)
	}
	if names := app.Health.Names(); len(names) != 0 {
		t.Errorf("memory mode should register no health checks, got %v", names)
	}
}

func TestApp_TripLifecycle(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	if _, err := app.Auth.SignIn(ctx, "admin-1"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if _, err := app.Records.Insert(ctx, domain.CollectionProfiles,
		backend.Record{"user_id": "admin-1", "role": string(domain.RoleAdmin)}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	trip, err := app.Trips.Create(ctx, trips.NewTrip{
		Title:     "Hanoi in spring",
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cover := upload.Asset{Filename: "lake.png", ContentType: "image/png", Data: []byte("png")}
	trip, err = app.Trips.ChangeCover(ctx, trip.ID, cover, nil)
	if err != nil {
		t.Fatalf("ChangeCover failed: %v", err)
	}
	if trip.Cover == nil || trip.Cover.Bucket != "trip-images" {
		t.Fatalf("unexpected cover %+v", trip.Cover)
	}

	if _, err := app.Records.Insert(ctx, domain.CollectionQuotations,
		backend.Record{"trip_id": trip.ID, "customer": "An"}); err != nil {
		t.Fatalf("seed quotation: %v", err)
	}

	if err := app.Trips.Delete(ctx, trip.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	objects := app.Objects.(*memory.ObjectStore)
	if left := objects.Objects("trip-images"); len(left) != 0 {
		t.Errorf("expected cover to be removed, got %v", left)
	}
	records := app.Records.(*memory.Collections)
	if n := records.Count(domain.CollectionQuotations, nil); n != 0 {
		t.Errorf("expected quotations to be deleted, got %d", n)
	}
	if n := records.Count(domain.CollectionTrips, nil); n != 0 {
		t.Errorf("expected trip to be deleted, got %d", n)
	}
}

func TestApp_StartStop(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
