package trips

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vietddude/tourdesk/internal/cascade"
	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/backend/memory"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/upload"
)

type fixedRole domain.Role

func (r fixedRole) ResolveRole(context.Context) (domain.Role, error) {
	return domain.Role(r), nil
}

type env struct {
	svc     *Service
	storage *memory.Storage
	records *memory.Collections
	objects *memory.ObjectStore
}

func newEnv(t *testing.T, role domain.Role) *env {
	t.Helper()
	discard := slog.New(slog.DiscardHandler)
	storage := memory.NewStorage()
	records := memory.NewCollections(storage)
	objects := memory.NewObjectStore(storage)
	exec := resilience.NewExecutor(
		resilience.WithLogger(discard),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	pipeline := upload.NewPipeline(objects, exec, upload.DefaultRules("images", "documents"), upload.WithLogger(discard))
	orchestrator := cascade.NewOrchestrator(records, fixedRole(role), exec, discard)

	return &env{
		svc:     NewService(records, exec, pipeline, orchestrator, discard),
		storage: storage,
		records: records,
		objects: objects,
	}
}

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func cover(name string) upload.Asset {
	return upload.Asset{Filename: name, ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}
}

func TestCreateGetList(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)

	later, err := e.svc.Create(ctx, NewTrip{Title: "Sapa Trek", Destination: "Sapa", StartDate: date("2026-03-01"), EndDate: date("2026-03-04")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	earlier, err := e.svc.Create(ctx, NewTrip{Title: " Ha Long Cruise ", Destination: "Ha Long", StartDate: date("2026-01-10")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if earlier.Title != "Ha Long Cruise" {
		t.Errorf("expected trimmed title, got %q", earlier.Title)
	}

	got, err := e.svc.Get(ctx, later.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Destination != "Sapa" || !got.EndDate.Equal(date("2026-03-04")) {
		t.Errorf("unexpected trip %+v", got)
	}

	list, err := e.svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != earlier.ID || list[1].ID != later.ID {
		t.Errorf("expected trips ordered by start date, got %+v", list)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t, domain.RoleAdmin)
	tests := []NewTrip{
		{Title: "   "},
		{Title: "Backwards", StartDate: date("2026-05-02"), EndDate: date("2026-05-01")},
	}
	for _, in := range tests {
		_, err := e.svc.Create(context.Background(), in)
		var vErr *resilience.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create(%+v): expected validation error, got %v", in, err)
		}
	}
	if calls := e.storage.Calls(); len(calls) != 0 {
		t.Errorf("validation must not reach the backend, got %v", calls)
	}
}

// lossyInsert stores the first insert but reports a gateway timeout for it,
// like a response lost on the way back.
type lossyInsert struct {
	backend.Collections
	lost bool
}

func (l *lossyInsert) Insert(ctx context.Context, collection string, rec backend.Record) (backend.Record, error) {
	out, err := l.Collections.Insert(ctx, collection, rec)
	if err == nil && !l.lost {
		l.lost = true
		return nil, resilience.NewStatusError(504, "gateway timeout", nil)
	}
	return out, err
}

func TestCreate_RetryAfterLostResponse(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)
	e.svc.records = &lossyInsert{Collections: e.records}

	trip, err := e.svc.Create(ctx, NewTrip{Title: "Hue"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if trip.Title != "Hue" {
		t.Errorf("unexpected trip %+v", trip)
	}
	if n := e.records.Count(domain.CollectionTrips, nil); n != 1 {
		t.Errorf("expected exactly one stored trip, got %d", n)
	}
	if got := e.storage.CallCount(memory.Target("insert", domain.CollectionTrips)); got != 2 {
		t.Errorf("expected 2 insert attempts, got %d", got)
	}
}

func TestGet_NotFoundIsFatal(t *testing.T) {
	e := newEnv(t, domain.RoleAdmin)
	_, err := e.svc.Get(context.Background(), "missing")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := e.storage.CallCount(memory.Target("select", domain.CollectionTrips)); got != 1 {
		t.Errorf("not found must not be retried, got %d selects", got)
	}
	if resilience.UserMessage(err) != resilience.MsgNotFound {
		t.Errorf("unexpected user message %q", resilience.UserMessage(err))
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)
	trip, err := e.svc.Create(ctx, NewTrip{Title: "Hoi An", StartDate: date("2026-06-01")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	title := "Hoi An Lanterns"
	end := date("2026-06-05")
	e.storage.InjectFault(memory.Target("update", domain.CollectionTrips), resilience.NewStatusError(502, "bad gateway", nil))

	updated, err := e.svc.Update(ctx, trip.ID, Patch{Title: &title, EndDate: &end})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != title || !updated.EndDate.Equal(end) || !updated.StartDate.Equal(date("2026-06-01")) {
		t.Errorf("unexpected trip %+v", updated)
	}

	bad := date("2026-05-01")
	if _, err := e.svc.Update(ctx, trip.ID, Patch{EndDate: &bad}); err == nil {
		t.Errorf("expected end before start to be rejected")
	}
}

func TestChangeCover_ReplacesOldImage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)
	trip, err := e.svc.Create(ctx, NewTrip{Title: "Da Lat"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := e.svc.ChangeCover(ctx, trip.ID, cover("Pine Hills.jpg"), nil)
	if err != nil {
		t.Fatalf("ChangeCover failed: %v", err)
	}
	if first.Cover == nil || first.Cover.DisplayName != "Pine Hills.jpg" {
		t.Fatalf("unexpected cover %+v", first.Cover)
	}

	second, err := e.svc.ChangeCover(ctx, trip.ID, cover("Lake.jpg"), nil)
	if err != nil {
		t.Fatalf("ChangeCover failed: %v", err)
	}

	objects := e.objects.Objects("images")
	if len(objects) != 1 || objects[0] != second.Cover.Path {
		t.Errorf("expected only the new cover to remain, got %v", objects)
	}
}

func TestChangeCover_FailedUploadKeepsOldCover(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)
	trip, err := e.svc.Create(ctx, NewTrip{Title: "Mui Ne"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	withCover, err := e.svc.ChangeCover(ctx, trip.ID, cover("dunes.jpg"), nil)
	if err != nil {
		t.Fatalf("ChangeCover failed: %v", err)
	}

	e.storage.InjectFault(memory.Target("upload", "images"), resilience.ErrNetwork, resilience.ErrNetwork, resilience.ErrNetwork)
	sel := &upload.Selection{}
	sel.Select(cover("beach.jpg"), "blob:beach")

	_, err = e.svc.ChangeCover(ctx, trip.ID, cover("beach.jpg"), sel)
	var upErr *upload.Error
	if !errors.As(err, &upErr) || upErr.Reason != upload.ReasonConnectivity {
		t.Fatalf("expected connectivity upload error, got %v", err)
	}
	if !sel.Empty() {
		t.Errorf("expected local selection to be rolled back")
	}

	current, err := e.svc.Get(ctx, trip.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if current.Cover == nil || current.Cover.Path != withCover.Cover.Path {
		t.Errorf("old cover should be kept, got %+v", current.Cover)
	}
	if _, ok := e.objects.Object("images", withCover.Cover.Path); !ok {
		t.Errorf("old cover object should be kept")
	}
}

func TestAttachDocument(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)

	doc, err := e.svc.AttachDocument(ctx, "trip-1", upload.Asset{
		Filename: "Visa Letter.pdf", ContentType: "application/pdf", Data: []byte("%PDF"),
	}, nil)
	if err != nil {
		t.Fatalf("AttachDocument failed: %v", err)
	}
	if doc.Asset.Bucket != "documents" || doc.Asset.DisplayName != "Visa Letter.pdf" {
		t.Errorf("unexpected document %+v", doc)
	}

	docs, err := e.svc.Documents(ctx, "trip-1")
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Asset.Path != doc.Asset.Path {
		t.Errorf("unexpected documents %+v", docs)
	}
}

func TestAttachDocument_RecordFailureRemovesObject(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAdmin)
	e.storage.InjectFault(memory.Target("insert", domain.CollectionDocuments), resilience.NewStatusError(403, "forbidden", nil))

	_, err := e.svc.AttachDocument(ctx, "trip-1", upload.Asset{
		Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF"),
	}, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if objects := e.objects.Objects("documents"); len(objects) != 0 {
		t.Errorf("expected orphaned object to be removed, got %v", objects)
	}
}

func TestDelete_CascadesAndRemovesCover(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleManager)
	trip, err := e.svc.Create(ctx, NewTrip{Title: "Mekong Delta"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := e.svc.ChangeCover(ctx, trip.ID, cover("river.jpg"), nil); err != nil {
		t.Fatalf("ChangeCover failed: %v", err)
	}
	for _, c := range []string{domain.CollectionQuotations, domain.CollectionBookings, domain.CollectionItineraryDays} {
		if _, err := e.records.Insert(ctx, c, backend.Record{"trip_id": trip.ID}); err != nil {
			t.Fatalf("seed %s: %v", c, err)
		}
	}

	if err := e.svc.Delete(ctx, trip.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := e.svc.Get(ctx, trip.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected trip to be gone, got %v", err)
	}
	for _, c := range []string{domain.CollectionQuotations, domain.CollectionBookings, domain.CollectionItineraryDays} {
		if n := e.records.Count(c, nil); n != 0 {
			t.Errorf("%s: %d records left", c, n)
		}
	}
	if objects := e.objects.Objects("images"); len(objects) != 0 {
		t.Errorf("expected cover to be removed, got %v", objects)
	}
}

func TestDelete_PermissionCheckedBeforeLookup(t *testing.T) {
	ctx := context.Background()
	for _, role := range []domain.Role{domain.RoleViewer, domain.RoleAgent} {
		e := newEnv(t, role)
		err := e.svc.Delete(ctx, "no-such-trip")
		if !errors.Is(err, resilience.ErrPermissionDenied) {
			t.Errorf("%s: expected permission denied for a missing trip, got %v", role, err)
		}
		if errors.Is(err, backend.ErrNotFound) {
			t.Errorf("%s: error reveals that the trip does not exist", role)
		}
		if n := e.storage.CallCount(memory.Target("select", domain.CollectionTrips)); n != 0 {
			t.Errorf("%s: expected no trip lookup, got %d", role, n)
		}
	}

	e := newEnv(t, domain.RoleAdmin)
	if err := e.svc.Delete(ctx, "no-such-trip"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("admin: expected not found, got %v", err)
	}
}

func TestDelete_ForbiddenForAgents(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, domain.RoleAgent)
	trip, err := e.svc.Create(ctx, NewTrip{Title: "Phu Quoc"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err = e.svc.Delete(ctx, trip.ID)
	if !errors.Is(err, resilience.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if resilience.UserMessage(err) != resilience.MsgPermission {
		t.Errorf("unexpected user message %q", resilience.UserMessage(err))
	}
	if _, err := e.svc.Get(ctx, trip.ID); err != nil {
		t.Errorf("trip should still exist: %v", err)
	}
}
