// Package localtrack implements the LocalTracker (spec.md §4.3): stable
// per-camera track identity assigned to detections across consecutive
// frames, via IoU association, generalized from the teacher's
// internal/vision.Tracker (a single-camera SORT-like face tracker) to the
// spec's (camera_id, local_track_id, bbox, confidence, age) contract.
package localtrack

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charles-haynes/munkres"

	"github.com/your-org/reident/internal/detector"
	"github.com/your-org/reident/internal/reidmodel"
)

// track is the tracker's private mutable state for one local track.
type track struct {
	id                string
	bbox              reidmodel.BBox
	confidence        float64
	consecutiveFrames int
	timeSinceUpdate   int
	lastUpdated       time.Time
}

// Update pairs a track's current public snapshot with whether it was
// just created this call.
type Update struct {
	Track reidmodel.LocalTrack
	IsNew bool
}

// minIoUForMatch is the minimum IoU for associating a detection to an
// existing track, unchanged from the teacher's tracker.
const minIoUForMatch = 0.3

// assignmentThreshold is the track count above which the tracker switches
// from greedy nearest-IoU matching to the Hungarian-optimal assignment;
// below it greedy matching already finds the optimum in practice and
// costs less.
const assignmentThreshold = 6

// Tracker maintains one camera's local tracks. Owned exclusively by its
// camera worker; never touched by the Engine (spec.md §3 ownership).
type Tracker struct {
	mu       sync.Mutex
	tracks   map[string]*track
	nextID   int
	cameraID string
	maxAge   int // frames of absence tolerated before a track is dropped
}

// NewTracker creates a tracker for one camera. maxAge is in frames
// (track_timeout in spec.md §4.3 terms).
func NewTracker(cameraID string, maxAge int) *Tracker {
	return &Tracker{
		tracks:   make(map[string]*track),
		cameraID: cameraID,
		maxAge:   maxAge,
	}
}

// Update associates detections to existing tracks, creates new tracks for
// the rest, ages out stale tracks, and reports which local_track_ids were
// just lost so the Engine can discard their TrackBinding (spec.md §4.3:
// "Lost tracks remove their TrackBinding from the Engine").
func (t *Tracker) Update(frameTS time.Time, detections []detector.Box) (updates []Update, lost []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tr := range t.tracks {
		tr.timeSinceUpdate++
	}

	trackList := make([]*track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		trackList = append(trackList, tr)
	}
	// Fixed order so ties in IoU resolve the same way on every run.
	sort.Slice(trackList, func(i, j int) bool { return trackList[i].id < trackList[j].id })

	var assignment map[int]int // detection index -> track list index
	if len(trackList) > assignmentThreshold && len(detections) > 0 {
		assignment = t.assignHungarian(trackList, detections)
	} else {
		assignment = t.assignGreedy(trackList, detections)
	}

	matchedTrack := make(map[string]bool, len(trackList))
	detMatched := make(map[int]bool, len(detections))

	for di, ti := range assignment {
		tr := trackList[ti]
		det := detections[di]

		tr.bbox = det.BBox
		tr.confidence = det.Confidence
		tr.consecutiveFrames++
		tr.timeSinceUpdate = 0
		tr.lastUpdated = frameTS

		matchedTrack[tr.id] = true
		detMatched[di] = true

		updates = append(updates, Update{Track: t.snapshot(tr), IsNew: false})
	}

	for di, det := range detections {
		if detMatched[di] {
			continue
		}
		t.nextID++
		id := fmt.Sprintf("%s_%d", t.cameraID, t.nextID)
		tr := &track{
			id:                id,
			bbox:              det.BBox,
			confidence:        det.Confidence,
			consecutiveFrames: 1,
			lastUpdated:       frameTS,
		}
		t.tracks[id] = tr
		updates = append(updates, Update{Track: t.snapshot(tr), IsNew: true})
	}

	for id, tr := range t.tracks {
		if tr.timeSinceUpdate > t.maxAge {
			delete(t.tracks, id)
			lost = append(lost, id)
		}
	}

	return updates, lost
}

func (t *Tracker) snapshot(tr *track) reidmodel.LocalTrack {
	return reidmodel.LocalTrack{
		CameraID:          t.cameraID,
		LocalTrackID:      tr.id,
		BBox:              tr.bbox,
		Confidence:        tr.confidence,
		ConsecutiveFrames: tr.consecutiveFrames,
		LastUpdated:       tr.lastUpdated,
	}
}

// assignGreedy is the teacher's original nearest-IoU-first loop
// (internal/vision/track.go Update), deterministic given input ordering
// per spec.md §4.3.
func (t *Tracker) assignGreedy(trackList []*track, detections []detector.Box) map[int]int {
	assignment := make(map[int]int)
	matched := make(map[int]bool)

	for di, det := range detections {
		bestIoU := float64(minIoUForMatch)
		best := -1
		for ti, tr := range trackList {
			if matched[ti] {
				continue
			}
			v := iou(det.BBox, tr.bbox)
			if v > bestIoU {
				bestIoU = v
				best = ti
			}
		}
		if best >= 0 {
			matched[best] = true
			assignment[di] = best
		}
	}
	return assignment
}

// assignHungarian finds the IoU-maximizing assignment of detections to
// tracks via the Hungarian algorithm, used once the per-camera track
// count exceeds assignmentThreshold, where the teacher's greedy loop can
// make locally-optimal but globally-wrong picks. Grounded on
// viam-modules-pizza-tracking's use of a Hungarian solver for
// detection-to-track assignment.
func (t *Tracker) assignHungarian(trackList []*track, detections []detector.Box) map[int]int {
	n, m := len(detections), len(trackList)
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, m)
		for j := range cost[i] {
			// Munkres minimizes cost; convert IoU (higher is better) to a
			// cost so a perfect match (IoU=1) costs 0.
			cost[i][j] = 1 - iou(detections[i].BBox, trackList[j].bbox)
		}
	}

	rowToCol := munkres.ComputeMunkres(cost)

	assignment := make(map[int]int)
	for di, ti := range rowToCol {
		if ti < 0 || ti >= m {
			continue
		}
		if iou(detections[di].BBox, trackList[ti].bbox) >= minIoUForMatch {
			assignment[di] = ti
		}
	}
	return assignment
}

// TrackCount returns the number of active tracks on this camera.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

func iou(a, b reidmodel.BBox) float64 {
	x1 := maxF(a.X1, b.X1)
	y1 := maxF(a.Y1, b.Y1)
	x2 := minF(a.X2, b.X2)
	y2 := minF(a.Y2, b.Y2)

	inter := maxF(0, x2-x1) * maxF(0, y2-y1)
	areaA := a.Width() * a.Height()
	areaB := b.Width() * b.Height()
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
