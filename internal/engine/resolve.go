package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/your-org/reident/internal/matcher"
	"github.com/your-org/reident/internal/reidmodel"
)

// ResolveInput is the public operation's parameters, spec.md §4.6:
// resolve(camera_id, local_track_id, bbox, frame, confidence,
// consecutive_frames) -> global_id. "frame" itself never reaches the
// Engine — callers pass pre-computed appearance/color features instead,
// keeping the Engine free of any image-decoding dependency.
type ResolveInput struct {
	CameraID          string
	LocalTrackID      string
	BBox              reidmodel.BBox
	Confidence        float64
	ConsecutiveFrames int

	Embedding        []float32 // nil if extraction was skipped or failed
	EmbeddingQuality float64
	ClothingHist     []float64
	SkinTone         []float64
}

// Resolve implements GlobalIdentityEngine.resolve (spec.md §4.6). It
// never returns an error: every error kind named in spec.md §7 falls
// through to a weaker stage or a provisional identity instead of failing
// the call.
func (e *Engine) Resolve(ctx context.Context, in ResolveInput) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := now()
	key := reidmodel.BindingKey{CameraID: in.CameraID, LocalTrackID: in.LocalTrackID}

	// 1. Binding fast path.
	if gid, ok := e.bindings[key]; ok {
		if p, ok := e.persons[gid]; ok {
			e.updateExisting(p, in, ts)
			return gid
		}
		// Inconsistent state: binding points at a missing person
		// (spec.md §7) — drop the binding, fall through to re-resolve.
		slog.Warn("binding referenced missing person, dropping", "global_id", gid, "camera_id", in.CameraID, "local_track_id", in.LocalTrackID)
		delete(e.bindings, key)
	}

	// 2. Stability gate.
	if in.ConsecutiveFrames < e.cfg.StableThreshold {
		return 0 // provisional: caller must not persist this as a binding
	}

	candidates := e.activeCandidates()
	q := matcher.Query{
		CameraID:     in.CameraID,
		BBox:         in.BBox,
		ClothingHist: in.ClothingHist,
		SkinTone:     in.SkinTone,
	}

	var gid int64
	var matchedStage string

	if id, ok := matcher.SpatialMatch(e.topology, q, candidates, e.cfg.SpatialTolerancePx); ok {
		gid, matchedStage = id, "spatial"
	} else if id, ok := matcher.DimensionMatch(candidates, in.BBox.Height(), in.BBox.Width(), e.cfg.DimensionTolerance, e.cfg.DimensionThreshold, len(in.Embedding) > 0); ok {
		gid, matchedStage = id, "dimension"
	} else if id, ok := matcher.ColorMatch(candidates, in.ClothingHist, in.SkinTone, matcher.ColorConfig{
		ClothingWeight: e.cfg.ClothingWeight,
		SkinWeight:     e.cfg.SkinWeight,
		Sigma:          e.cfg.ColorSigma,
		Threshold:      e.cfg.ColorThreshold,
	}); ok {
		gid, matchedStage = id, "color"
	} else if id, ok := matcher.AppearanceMatch(e.index, in.Embedding, e.cfg.FaceSimilarityThreshold); ok {
		gid, matchedStage = id, "appearance"
	} else if e.store != nil && len(in.Embedding) > 0 {
		// Cold-read fallback (spec.md §4.8): the candidate may match an
		// inactive person from a prior run.
		if p, found, err := e.store.ColdRead(ctx, in.Embedding, e.cfg.FaceSimilarityThreshold); err == nil && found {
			e.reactivate(p)
			gid, matchedStage = p.GlobalID, "cold-read"
		} else if err != nil {
			slog.Warn("cold-read failed", "error", err)
		}
	}

	if matchedStage == "" {
		gid = e.mintPerson(in, ts)
		matchedStage = "new"
	} else {
		e.updateExisting(e.persons[gid], in, ts)
	}

	e.bindings[key] = gid
	recordStage(matchedStage)
	return gid
}

// ReleaseBinding drops a (camera_id, local_track_id) binding once the
// LocalTracker reports the local track lost, per spec.md §4.3's
// invariant that the Engine must not retain a binding past track death.
func (e *Engine) ReleaseBinding(cameraID, localTrackID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.bindings, reidmodel.BindingKey{CameraID: cameraID, LocalTrackID: localTrackID})
}

func (e *Engine) activeCandidates() []matcher.Candidate {
	out := make([]matcher.Candidate, 0, len(e.persons))
	for _, p := range e.persons {
		if !p.IsActive {
			continue
		}
		out = append(out, matcher.Candidate{
			GlobalID:         p.GlobalID,
			CurrentPositions: p.CurrentPositions,
			AvgHeightPx:      p.AvgHeightPx,
			AvgWidthPx:       p.AvgWidthPx,
			ClothingHist:     p.ClothingHist,
			SkinTone:         p.SkinTone,
		})
	}
	return out
}

func (e *Engine) updateExisting(p *reidmodel.GlobalPerson, in ResolveInput, ts time.Time) {
	if p.CurrentPositions == nil {
		p.CurrentPositions = make(map[string]reidmodel.Position)
	}
	p.CurrentPositions[in.CameraID] = reidmodel.Position{BBox: in.BBox, TS: ts}
	if p.CamerasVisited == nil {
		p.CamerasVisited = make(map[string]struct{})
	}
	p.CamerasVisited[in.CameraID] = struct{}{}
	p.LastSeenTS = ts
	p.TotalAppearances++
	p.IsActive = true

	// Running mean of height/width over dimension_samples observations
	// (spec.md §3 invariant).
	n := float64(p.DimensionSample)
	p.AvgHeightPx = (p.AvgHeightPx*n + in.BBox.Height()) / (n + 1)
	p.AvgWidthPx = (p.AvgWidthPx*n + in.BBox.Width()) / (n + 1)
	p.DimensionSample++

	if len(in.Embedding) > 0 && in.EmbeddingQuality > p.EmbeddingQuality {
		p.Embedding = in.Embedding
		p.EmbeddingQuality = in.EmbeddingQuality
		e.index.Add(p.GlobalID, p.Embedding)
	}

	if len(in.ClothingHist) > 0 {
		p.ClothingHist = emaBlend(p.ClothingHist, in.ClothingHist, e.cfg.ColorEMAAlpha)
		p.ColorSamples++
	}
	if len(in.SkinTone) > 0 {
		p.SkinTone = emaBlend(p.SkinTone, in.SkinTone, e.cfg.ColorEMAAlpha)
	}

	p.MarkDirty()
}

func (e *Engine) mintPerson(in ResolveInput, ts time.Time) int64 {
	e.nextID++
	gid := e.nextID

	p := &reidmodel.GlobalPerson{
		GlobalID:         gid,
		Embedding:        in.Embedding,
		EmbeddingQuality: in.EmbeddingQuality,
		ClothingHist:     in.ClothingHist,
		SkinTone:         in.SkinTone,
		AvgHeightPx:      in.BBox.Height(),
		AvgWidthPx:       in.BBox.Width(),
		DimensionSample:  1,
		CamerasVisited:   map[string]struct{}{in.CameraID: {}},
		CurrentPositions: map[string]reidmodel.Position{in.CameraID: {BBox: in.BBox, TS: ts}},
		FirstSeenTS:      ts,
		LastSeenTS:       ts,
		IsActive:         true,
		TotalAppearances: 1,
	}
	if len(in.ClothingHist) > 0 {
		p.ColorSamples = 1
	}
	if e.cfg.AutoName {
		p.AssignedName = e.names.Next()
	}

	e.persons[gid] = p
	if len(p.Embedding) > 0 {
		e.index.Add(gid, p.Embedding)
	}
	p.MarkDirty()

	return gid
}

// reactivate restores a cold-read-matched person into the active gallery
// (spec.md §4.8: "The matched record is hydrated back into the active
// gallery").
func (e *Engine) reactivate(p *reidmodel.GlobalPerson) {
	p.IsActive = true
	if p.CurrentPositions == nil {
		p.CurrentPositions = make(map[string]reidmodel.Position)
	}
	e.persons[p.GlobalID] = p
	if len(p.Embedding) > 0 {
		e.index.Add(p.GlobalID, p.Embedding)
	}
}

// Rename implements spec.md §4.6's rename operation: updates
// assigned_name only, durable at the next sync. Returns false if the
// global_id is unknown (spec.md §7: rename_person fails with not_found).
func (e *Engine) Rename(globalID int64, name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.persons[globalID]
	if !ok {
		return false
	}
	p.AssignedName = name
	p.MarkDirty()
	return true
}


func emaBlend(old, new []float64, alpha float64) []float64 {
	if len(old) == 0 {
		out := make([]float64, len(new))
		copy(out, new)
		return out
	}
	if len(new) == 0 || len(new) != len(old) {
		return old
	}
	out := make([]float64, len(old))
	for i := range old {
		out[i] = old[i]*(1-alpha) + new[i]*alpha
	}
	return out
}

func recordStage(stage string) {
	// Hook point for observability.ResolveCalls; see resolveStageHook.
	resolveStageHook(stage)
}
