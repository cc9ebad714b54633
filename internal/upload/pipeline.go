package upload

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/metrics"
)

// Pipeline uploads assets through the resilient executor.
type Pipeline struct {
	store   backend.ObjectStore
	exec    *resilience.Executor
	rules   map[Kind]Rule
	namer   *Namer
	orphans OrphanRecorder
	log     *slog.Logger
}

// OrphanRecorder remembers objects whose best-effort removal failed so they
// can be removed later.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, ref domain.AssetRef, reason string) error
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNamer replaces the default wall-clock Namer.
func WithNamer(n *Namer) PipelineOption {
	return func(p *Pipeline) { p.namer = n }
}

// WithOrphanRecorder makes Discard record objects it could not remove.
func WithOrphanRecorder(r OrphanRecorder) PipelineOption {
	return func(p *Pipeline) { p.orphans = r }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline creates an upload pipeline that stores objects in store
// according to rules, retrying transfers through exec.
func NewPipeline(store backend.ObjectStore, exec *resilience.Executor, rules map[Kind]Rule, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store: store,
		exec:  exec,
		rules: rules,
		namer: NewNamer(nil),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "upload")
	return p
}

// Rule returns the rule configured for kind.
func (p *Pipeline) Rule(kind Kind) (Rule, bool) {
	r, ok := p.rules[kind]
	return r, ok
}

// Upload validates asset, transfers it under a fresh collision-free name and
// returns its reference. Any failure resets state before returning.
func (p *Pipeline) Upload(ctx context.Context, asset Asset, kind Kind, ownerID string, state LocalState) (ref domain.AssetRef, err error) {
	defer func() {
		if err != nil {
			rollback(state)
			metrics.UploadsTotal.WithLabelValues(string(kind), "failure").Inc()
			return
		}
		metrics.UploadsTotal.WithLabelValues(string(kind), "success").Inc()
		metrics.UploadBytes.WithLabelValues(string(kind)).Observe(float64(asset.Size()))
	}()

	rule, ok := p.rules[kind]
	if !ok {
		return domain.AssetRef{}, &Error{
			Reason: ReasonInvalidType,
			Kind:   kind,
			Err:    &resilience.ValidationError{Field: "kind", Reason: "unknown asset kind " + string(kind)},
		}
	}
	if err := validate(asset, kind, rule); err != nil {
		p.log.Info("upload rejected", "kind", kind, "filename", asset.Filename, "error", err)
		return domain.AssetRef{}, err
	}

	// The name is fixed before the first attempt so retries overwrite the
	// same object instead of leaving duplicates behind.
	name := p.namer.Next(kind, ownerID, asset.Filename)
	path, err := resilience.Execute(ctx, p.exec, resilience.Operation[string]{
		Name:        "upload." + string(kind),
		MaxAttempts: rule.MaxAttempts,
		Timeout:     rule.Timeout,
		Invoke: func(ctx context.Context) (string, error) {
			return p.store.Upload(ctx, rule.Bucket, name, bytes.NewReader(asset.Data), asset.Size(), backend.UploadOptions{
				ContentType:  asset.ContentType,
				CacheControl: rule.CacheControl,
				Upsert:       true,
			})
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.AssetRef{}, err
		}
		p.log.Warn("upload failed", "kind", kind, "path", name, "error", err)
		return domain.AssetRef{}, failure(kind, err)
	}

	ref = domain.AssetRef{
		Locator:     p.store.PublicURL(rule.Bucket, path),
		DisplayName: asset.Filename,
		Bucket:      rule.Bucket,
		Path:        path,
	}
	p.log.Info("asset uploaded", "kind", kind, "bucket", rule.Bucket, "path", path, "bytes", asset.Size())
	return ref, nil
}

// Replace uploads asset, hands the new reference to commit (typically the
// record update that points at it) and only then removes old. If commit
// fails the new object is removed and old is left untouched. Failing to
// remove old is logged and does not fail the call. commit may be nil.
func (p *Pipeline) Replace(
	ctx context.Context,
	old *domain.AssetRef,
	asset Asset,
	kind Kind,
	ownerID string,
	state LocalState,
	commit func(ctx context.Context, ref domain.AssetRef) error,
) (domain.AssetRef, error) {
	ref, err := p.Upload(ctx, asset, kind, ownerID, state)
	if err != nil {
		return domain.AssetRef{}, err
	}

	if commit != nil {
		if err := commit(ctx, ref); err != nil {
			rollback(state)
			p.Discard(ctx, ref, "uncommitted")
			return domain.AssetRef{}, err
		}
	}

	if old != nil && old.Path != "" && (old.Path != ref.Path || old.Bucket != ref.Bucket) {
		p.Discard(ctx, *old, "replaced")
	}
	return ref, nil
}

// Discard removes ref on a best-effort basis. A failed removal is logged and
// handed to the orphan recorder; it never fails the caller.
func (p *Pipeline) Discard(ctx context.Context, ref domain.AssetRef, reason string) {
	err := p.Remove(ctx, ref)
	if err == nil {
		return
	}
	p.log.Warn("failed to remove asset", "reason", reason, "bucket", ref.Bucket, "path", ref.Path, "error", err)
	if p.orphans == nil {
		return
	}
	if ref.Bucket == "" {
		ref.Bucket = p.rules[KindImage].Bucket
	}
	if recErr := p.orphans.RecordOrphan(context.WithoutCancel(ctx), ref, reason); recErr != nil {
		p.log.Error("failed to record orphaned asset", "bucket", ref.Bucket, "path", ref.Path, "error", recErr)
	}
}

// Remove deletes the object behind ref.
func (p *Pipeline) Remove(ctx context.Context, ref domain.AssetRef) error {
	if ref.Path == "" {
		return nil
	}
	bucket := ref.Bucket
	if bucket == "" {
		bucket = p.rules[KindImage].Bucket
	}
	return resilience.Do(ctx, p.exec, "upload.remove", func(ctx context.Context) error {
		return p.store.Remove(ctx, bucket, ref.Path)
	})
}
