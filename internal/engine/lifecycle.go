package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/your-org/reident/internal/observability"
	"github.com/your-org/reident/internal/reidmodel"
)

// RunCleanup starts the cleanup task described in spec.md §4.6: every
// cleanup_interval, mark any person with now - last_seen_ts >
// person_timeout as inactive and remove it from the VectorIndex. It is a
// cooperative scheduled job with an explicit lifecycle (spec.md §9):
// callers stop it by cancelling ctx.
func (e *Engine) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cleanupTick(now())
		}
	}
}

// cleanupTick is split out from RunCleanup so tests can drive it with an
// explicit clock instead of waiting on a real ticker (spec.md §9).
func (e *Engine) cleanupTick(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	evicted := 0
	active := 0
	for _, p := range e.persons {
		if !p.IsActive {
			continue
		}
		if at.Sub(p.LastSeenTS) > e.cfg.PersonTimeout {
			p.IsActive = false
			p.MarkDirty()
			e.index.Remove(p.GlobalID)
			evicted++
			continue
		}
		p.PruneStalePositions(at, e.cfg.PositionTTL)
		active++
	}

	if evicted > 0 {
		observability.CleanupEvictions.Add(float64(evicted))
		slog.Info("cleanup tick evicted persons", "count", evicted)
	}
	observability.GallerySize.Set(float64(active))
}

// RunSync starts the PersistentStore sync task described in spec.md
// §4.8: every db_sync_interval, upsert all dirty persons. Sync failures
// are retried on the next tick and never block Resolve (spec.md §7).
func (e *Engine) RunSync(ctx context.Context) {
	if e.store == nil {
		return
	}
	ticker := time.NewTicker(e.cfg.DBSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.syncTick(ctx)
		}
	}
}

// nameCursorHinter is implemented by PersistentStore's concrete type
// (internal/store.Store) to receive the name pool's current cursor
// alongside a sync tick. It is kept out of the PersistentStore interface
// itself since it is a hint, not a required capability — a store that
// doesn't implement it just never persists the cursor.
type nameCursorHinter interface {
	SetNameCursorHint(cursor int)
}

func (e *Engine) syncTick(ctx context.Context) {
	dirty := e.snapshotDirty()
	if len(dirty) == 0 {
		return
	}

	if hinter, ok := e.store.(nameCursorHinter); ok {
		e.mu.Lock()
		cursor := e.names.NextIndex()
		e.mu.Unlock()
		hinter.SetNameCursorHint(cursor)
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.DBOpTimeout)
	defer cancel()

	if err := e.store.SyncDirty(opCtx, dirty); err != nil {
		observability.SyncTickOutcome.WithLabelValues("failure").Inc()
		slog.Warn("sync tick failed, will retry next tick", "error", err)
		return
	}

	e.mu.Lock()
	for _, p := range dirty {
		p.ClearDirty()
	}
	e.mu.Unlock()

	observability.SyncTickOutcome.WithLabelValues("success").Inc()
}

// snapshotDirty returns a copy of the dirty-person pointer slice under
// lock, matching spec.md §9's accepted dirty-only-sync optimization.
func (e *Engine) snapshotDirty() []*reidmodel.GlobalPerson {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dirty []*reidmodel.GlobalPerson
	for _, p := range e.persons {
		if p.Dirty() {
			dirty = append(dirty, p)
		}
	}
	return dirty
}
