package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/metrics"
)

// Remover deletes a stored object.
type Remover interface {
	Remove(ctx context.Context, ref domain.AssetRef) error
}

// Pruner retries the removal of recorded orphaned objects.
type Pruner struct {
	orphans  *Orphans
	remover  Remover
	interval time.Duration
	log      *slog.Logger
}

// NewPruner creates a new Pruner worker. A non-positive interval disables
// the loop; Prune can still be called directly.
func NewPruner(orphans *Orphans, remover Remover, interval time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		orphans:  orphans,
		remover:  remover,
		interval: interval,
		log:      log.With("component", "pruner"),
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	interval := max(p.interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *Pruner) run(ctx context.Context) {
	removed, err := p.Prune(ctx)
	if err != nil && ctx.Err() == nil {
		p.log.Error("Prune failed", "removed", removed, "error", err)
	}
}

// Prune tries every recorded orphan once and returns how many were removed.
// Objects that are already gone count as removed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	orphans, err := p.orphans.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, orphan := range orphans {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		ref := domain.AssetRef{Bucket: orphan.Bucket, Path: orphan.Path}
		if err := p.remover.Remove(ctx, ref); err != nil && !errors.Is(err, backend.ErrNotFound) {
			metrics.OrphanedObjectsTotal.WithLabelValues("failed").Inc()
			p.log.Warn("Orphaned object still not removable",
				"bucket", orphan.Bucket, "path", orphan.Path, "attempts", orphan.Attempts+1, "error", err)
			if bumpErr := p.orphans.bumpAttempts(ctx, orphan); bumpErr != nil {
				errs = append(errs, bumpErr)
			}
			continue
		}
		if err := p.orphans.Forget(ctx, orphan.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
		metrics.OrphanedObjectsTotal.WithLabelValues("removed").Inc()
	}

	if removed > 0 {
		p.log.Info("Pruned orphaned objects", "removed", removed, "remaining", len(orphans)-removed)
	}
	return removed, errors.Join(errs...)
}
