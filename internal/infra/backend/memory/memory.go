// Package memory is an in-process backend used when no database or object
// store is configured, and by tests. Faults and latency can be injected per
// call target ("<op>:<collection or bucket>", e.g. "delete:quotations").
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

type Storage struct {
	mu      sync.Mutex
	records map[string][]backend.Record
	objects map[string]map[string][]byte
	faults  map[string][]error
	latency map[string]time.Duration
	calls   []string
	baseURL string
}

// NewStorage creates an empty in-process backend.
func NewStorage() *Storage {
	return &Storage{
		records: make(map[string][]backend.Record),
		objects: make(map[string]map[string][]byte),
		faults:  make(map[string][]error),
		latency: make(map[string]time.Duration),
		baseURL: "https://storage.local",
	}
}

// Target builds a fault/latency target key.
func Target(op, name string) string {
	return op + ":" + name
}

// InjectFault queues errs for target; each call pops one. A nil entry lets
// that call through.
func (s *Storage) InjectFault(target string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[target] = append(s.faults[target], errs...)
}

// SetLatency delays every call to target by d (or until ctx is done).
func (s *Storage) SetLatency(target string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[target] = d
}

// Calls returns every call target in invocation order.
func (s *Storage) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns how many times target was called.
func (s *Storage) CallCount(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == target {
			n++
		}
	}
	return n
}

func (s *Storage) enter(ctx context.Context, target string) error {
	s.mu.Lock()
	s.calls = append(s.calls, target)
	delay := s.latency[target]
	var fault error
	if queue := s.faults[target]; len(queue) > 0 {
		fault = queue[0]
		s.faults[target] = queue[1:]
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fault
}

// -----------------------------------------------------------------------------
// Collections
// -----------------------------------------------------------------------------

type Collections struct {
	store *Storage
}

// NewCollections exposes the records of store.
func NewCollections(store *Storage) *Collections {
	return &Collections{store: store}
}

func (c *Collections) Select(ctx context.Context, collection string, filter backend.Filter) ([]backend.Record, error) {
	if err := c.store.enter(ctx, Target("select", collection)); err != nil {
		return nil, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var out []backend.Record
	for _, rec := range c.store.records[collection] {
		if matches(rec, filter) {
			out = append(out, clone(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].String("id") < out[j].String("id") })
	return out, nil
}

func (c *Collections) Insert(ctx context.Context, collection string, rec backend.Record) (backend.Record, error) {
	if err := c.store.enter(ctx, Target("insert", collection)); err != nil {
		return nil, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	stored := clone(rec)
	if stored.String("id") == "" {
		stored["id"] = uuid.NewString()
	}
	for _, existing := range c.store.records[collection] {
		if existing.String("id") == stored.String("id") {
			return nil, resilience.NewStatusError(409, fmt.Sprintf("duplicate key %s in %s", stored.String("id"), collection), nil)
		}
	}
	c.store.records[collection] = append(c.store.records[collection], stored)
	return clone(stored), nil
}

func (c *Collections) Update(ctx context.Context, collection string, filter backend.Filter, patch backend.Record) (int64, error) {
	if err := c.store.enter(ctx, Target("update", collection)); err != nil {
		return 0, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var n int64
	for _, rec := range c.store.records[collection] {
		if !matches(rec, filter) {
			continue
		}
		for k, v := range patch {
			rec[k] = v
		}
		n++
	}
	return n, nil
}

func (c *Collections) Delete(ctx context.Context, collection string, filter backend.Filter) (int64, error) {
	if err := c.store.enter(ctx, Target("delete", collection)); err != nil {
		return 0, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	kept := c.store.records[collection][:0]
	var n int64
	for _, rec := range c.store.records[collection] {
		if matches(rec, filter) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	c.store.records[collection] = kept
	return n, nil
}

// Count returns the number of records in collection matching filter.
func (c *Collections) Count(collection string, filter backend.Filter) int {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	n := 0
	for _, rec := range c.store.records[collection] {
		if matches(rec, filter) {
			n++
		}
	}
	return n
}

func matches(rec backend.Record, filter backend.Filter) bool {
	for k, want := range filter {
		got, ok := rec[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func clone(rec backend.Record) backend.Record {
	out := make(backend.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------
// Object Store
// -----------------------------------------------------------------------------

type ObjectStore struct {
	store *Storage
}

// NewObjectStore exposes the objects of store.
func NewObjectStore(store *Storage) *ObjectStore {
	return &ObjectStore{store: store}
}

func (o *ObjectStore) Upload(
	ctx context.Context,
	bucket, name string,
	r io.Reader,
	size int64,
	opts backend.UploadOptions,
) (string, error) {
	if err := o.store.enter(ctx, Target("upload", bucket)); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}

	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	if o.store.objects[bucket] == nil {
		o.store.objects[bucket] = make(map[string][]byte)
	}
	if _, exists := o.store.objects[bucket][name]; exists && !opts.Upsert {
		return "", resilience.NewStatusError(409, fmt.Sprintf("object %s/%s already exists", bucket, name), nil)
	}
	o.store.objects[bucket][name] = data
	return name, nil
}

func (o *ObjectStore) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", o.store.baseURL, bucket, path)
}

func (o *ObjectStore) Remove(ctx context.Context, bucket string, paths ...string) error {
	if err := o.store.enter(ctx, Target("remove", bucket)); err != nil {
		return err
	}
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, p := range paths {
		delete(o.store.objects[bucket], p)
	}
	return nil
}

// Object returns the stored bytes of bucket/path.
func (o *ObjectStore) Object(bucket, path string) ([]byte, bool) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	data, ok := o.store.objects[bucket][path]
	return data, ok
}

// Objects returns the stored paths of bucket, sorted.
func (o *ObjectStore) Objects(bucket string) []string {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	paths := make([]string, 0, len(o.store.objects[bucket]))
	for p := range o.store.objects[bucket] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

type Auth struct {
	mu       sync.Mutex
	session  *domain.Session
	signOuts int
}

// NewAuth creates an auth stub holding session, which may be nil.
func NewAuth(session *domain.Session) *Auth {
	return &Auth{session: session}
}

func (a *Auth) Session(ctx context.Context) (*domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
	a.signOuts++
	return nil
}

// SignOuts returns how many times SignOut was called.
func (a *Auth) SignOuts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signOuts
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

// Sessions is an in-process auth.SessionStore.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]domain.Session)}
}

func (s *Sessions) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *Sessions) Active(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	return !session.Expired(time.Now()), nil
}

func (s *Sessions) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
