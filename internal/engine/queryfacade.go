package engine

import "github.com/your-org/reident/internal/reidmodel"

// RoomTopology resolves which cameras belong to a room; supplied by the
// deployment (room-layout designer is explicitly out of scope, spec.md
// §1) — the Engine only needs the camera set for a room_id.
type RoomTopology interface {
	CamerasInRoom(roomID string) []string
}

// PersonView is one (global_id, camera_id) observation returned by
// ListInRoom (spec.md §4.9).
type PersonView struct {
	GlobalID int64
	Name     string
	CameraID string
	BBox     reidmodel.BBox
	Quality  float64
}

// QueryFacade is the read-only surface over the Engine's current state
// (spec.md §4.9). It performs no matching; it only reads.
type QueryFacade struct {
	engine   *Engine
	topology RoomTopology
}

// NewQueryFacade builds a facade over an Engine and a room/camera
// topology resolver.
func NewQueryFacade(e *Engine, topology RoomTopology) *QueryFacade {
	return &QueryFacade{engine: e, topology: topology}
}

// CountInRoom implements spec.md §4.9: the number of distinct global_ids
// currently bound to tracks on cameras belonging to room_id.
func (f *QueryFacade) CountInRoom(roomID string) int {
	return len(f.distinctGlobalIDsInRoom(roomID))
}

// ListInRoom implements spec.md §4.9: one entry per (global_id,
// camera_id) currently observed in the room. The same global_id may
// appear multiple times; callers computing a count must dedupe (spec.md
// §8's testable property: count_in_room == cardinality of list entries).
func (f *QueryFacade) ListInRoom(roomID string) []PersonView {
	cameras := f.topology.CamerasInRoom(roomID)
	camSet := make(map[string]struct{}, len(cameras))
	for _, c := range cameras {
		camSet[c] = struct{}{}
	}

	f.engine.mu.Lock()
	defer f.engine.mu.Unlock()

	var views []PersonView
	for _, p := range f.engine.persons {
		if !p.IsActive {
			continue
		}
		p.PruneStalePositions(now(), f.engine.cfg.PositionTTL)
		for cam, pos := range p.CurrentPositions {
			if _, ok := camSet[cam]; !ok {
				continue
			}
			views = append(views, PersonView{
				GlobalID: p.GlobalID,
				Name:     p.AssignedName,
				CameraID: cam,
				BBox:     pos.BBox,
				Quality:  p.EmbeddingQuality,
			})
		}
	}
	return views
}

func (f *QueryFacade) distinctGlobalIDsInRoom(roomID string) map[int64]struct{} {
	cameras := f.topology.CamerasInRoom(roomID)
	camSet := make(map[string]struct{}, len(cameras))
	for _, c := range cameras {
		camSet[c] = struct{}{}
	}

	f.engine.mu.Lock()
	defer f.engine.mu.Unlock()

	ids := make(map[int64]struct{})
	for _, p := range f.engine.persons {
		if !p.IsActive {
			continue
		}
		p.PruneStalePositions(now(), f.engine.cfg.PositionTTL)
		for cam := range p.CurrentPositions {
			if _, ok := camSet[cam]; ok {
				ids[p.GlobalID] = struct{}{}
				break
			}
		}
	}
	return ids
}

// PersonSnapshot is the full GlobalPerson view returned by GetPerson.
type PersonSnapshot struct {
	GlobalID         int64
	AssignedName     string
	CamerasVisited   []string
	CurrentPositions map[string]reidmodel.Position
	AvgHeightPx      float64
	AvgWidthPx       float64
	FirstSeenTS      string
	LastSeenTS       string
	TotalAppearances int
	IsActive         bool
	BestSnapshotKey  string
}

// GetPerson implements spec.md §4.9: a full GlobalPerson snapshot.
func (f *QueryFacade) GetPerson(globalID int64) (PersonSnapshot, bool) {
	f.engine.mu.Lock()
	defer f.engine.mu.Unlock()

	p, ok := f.engine.persons[globalID]
	if !ok {
		return PersonSnapshot{}, false
	}

	p.PruneStalePositions(now(), f.engine.cfg.PositionTTL)

	cameras := make([]string, 0, len(p.CamerasVisited))
	for c := range p.CamerasVisited {
		cameras = append(cameras, c)
	}

	return PersonSnapshot{
		GlobalID:         p.GlobalID,
		AssignedName:     p.AssignedName,
		CamerasVisited:   cameras,
		CurrentPositions: p.CurrentPositions,
		AvgHeightPx:      p.AvgHeightPx,
		AvgWidthPx:       p.AvgWidthPx,
		FirstSeenTS:      p.FirstSeenTS.Format(timeLayout),
		LastSeenTS:       p.LastSeenTS.Format(timeLayout),
		TotalAppearances: p.TotalAppearances,
		IsActive:         p.IsActive,
		BestSnapshotKey:  p.BestSnapshotKey,
	}, true
}

// RenamePerson implements spec.md §4.9's rename_person operation.
func (f *QueryFacade) RenamePerson(globalID int64, name string) bool {
	return f.engine.Rename(globalID, name)
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
