// Package engine implements the GlobalIdentityEngine (spec.md §4.6–§4.7),
// the matcher and active gallery at the heart of the core. Grounded on
// other_examples' person_reid.go (PersonReID: mutex-owned identity map,
// running-average attribute updates) generalized to the full multi-stage,
// multi-camera, multi-field contract spec.md §3/§4.6 describes, and on
// the teacher's cooperative-ticker shape for background jobs.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/your-org/reident/internal/appearance"
	"github.com/your-org/reident/internal/colorfeature"
	"github.com/your-org/reident/internal/config"
	"github.com/your-org/reident/internal/matcher"
	"github.com/your-org/reident/internal/reidmodel"
	"github.com/your-org/reident/internal/vectorindex"
)

// PersistentStore is the subset of internal/store.Store the Engine needs:
// cold-start gallery backfill, cold-read on cache miss, and dirty sync.
// Defined here (accept-interfaces) so the Engine never depends on pgx
// directly.
type PersistentStore interface {
	LoadActivePersons(ctx context.Context) ([]*reidmodel.GlobalPerson, error)
	ColdRead(ctx context.Context, embedding []float32, threshold float64) (*reidmodel.GlobalPerson, bool, error)
	SyncDirty(ctx context.Context, persons []*reidmodel.GlobalPerson) error
	LoadNameCursor(ctx context.Context) (int, error)
}

// Engine is the single-owner GlobalIdentityEngine: all mutations of
// GlobalPerson records and the VectorIndex happen under mu (spec.md §5).
type Engine struct {
	mu sync.Mutex

	persons  map[int64]*reidmodel.GlobalPerson
	bindings map[reidmodel.BindingKey]int64
	index    *vectorindex.Index
	nextID   int64
	names    *namePool

	topology *matcher.CameraTopology
	cfg      config.ReIDConfig
	store    PersistentStore
}

// New constructs an Engine with an empty gallery. Call Bootstrap to
// perform the cold-start backfill from PersistentStore (spec.md §4.7)
// before serving Resolve calls.
func New(cfg config.ReIDConfig, store PersistentStore, topology *matcher.CameraTopology) *Engine {
	return &Engine{
		persons:  make(map[int64]*reidmodel.GlobalPerson),
		bindings: make(map[reidmodel.BindingKey]int64),
		index:    vectorindex.New(),
		names:    newNamePool(0),
		topology: topology,
		cfg:      cfg,
		store:    store,
	}
}

// SetTopology updates the camera-overlap metadata used by the spatial
// matching stage. Safe to call concurrently with Resolve.
func (e *Engine) SetTopology(topology *matcher.CameraTopology) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topology = topology
}

// Bootstrap performs the cold-start gallery backfill (spec.md §4.7):
// loads every active, embedding-bearing person from PersistentStore and
// re-adds them to the VectorIndex. current_positions is intentionally
// left empty — it is a live field, never restored.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	persons, err := e.store.LoadActivePersons(ctx)
	if err != nil {
		return err
	}

	nameCursor, err := e.store.LoadNameCursor(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range persons {
		p.CurrentPositions = make(map[string]reidmodel.Position)
		e.persons[p.GlobalID] = p
		if p.Embedding != nil {
			e.index.Add(p.GlobalID, p.Embedding)
		}
		if p.GlobalID >= e.nextID {
			e.nextID = p.GlobalID + 1
		}
	}
	e.names = newNamePool(nameCursor)

	slog.Info("gallery backfill complete", "persons", len(persons))
	return nil
}

// ExtractionInput bundles everything Resolve needs beyond the raw track
// identity: the appearance and color feature extraction results for the
// current observation, computed by the caller (per spec.md §4.6, the
// Engine owns the trigger policy but not the extraction itself).
type ExtractionInput struct {
	Appearance *appearance.Result
	Color      *colorfeature.Result
}

// ShouldExtractAppearance implements the Engine-owned trigger policy from
// spec.md §4.4: extraction runs when (1) the track has just become
// stable and has no bound embedding yet, or (2) the candidate quality
// proxy for this observation (cheaply derived from bbox area, before
// paying for inference) beats the bound person's current embedding
// quality by more than QualityMargin. candidateQuality is computed by
// the caller via appearance.QualityFromBBox.
func (e *Engine) ShouldExtractAppearance(track reidmodel.LocalTrack, hasEmbedding bool, boundPersonQuality, candidateQuality float64) bool {
	if track.ConsecutiveFrames < e.cfg.StableThreshold {
		return false
	}
	if !hasEmbedding {
		return true
	}
	return candidateQuality > boundPersonQuality+e.cfg.QualityMargin
}

// ActivePersonCount returns the number of persons currently in the active
// gallery, for metrics/diagnostics.
func (e *Engine) ActivePersonCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, p := range e.persons {
		if p.IsActive {
			n++
		}
	}
	return n
}

// now is overridable in tests that need deterministic clocks (spec.md §9:
// "Periodic background task ... tested by driving the clock
// deterministically").
var now = time.Now
