package localtrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/reident/internal/detector"
	"github.com/your-org/reident/internal/reidmodel"
)

func box(x1, y1, x2, y2 float64) detector.Box {
	return detector.Box{BBox: reidmodel.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}, Confidence: 0.9}
}

func TestTracker_NewDetectionCreatesTrack(t *testing.T) {
	tr := NewTracker("cam1", 5)
	updates, lost := tr.Update(time.Now(), []detector.Box{box(0, 0, 10, 10)})

	require.Len(t, updates, 1)
	assert.Empty(t, lost)
	assert.True(t, updates[0].IsNew)
	assert.Equal(t, 1, updates[0].Track.ConsecutiveFrames)
	assert.Equal(t, "cam1", updates[0].Track.CameraID)
}

func TestTracker_OverlappingBoxReusesTrack(t *testing.T) {
	tr := NewTracker("cam1", 5)
	now := time.Now()

	u1, _ := tr.Update(now, []detector.Box{box(0, 0, 10, 10)})
	id := u1[0].Track.LocalTrackID

	u2, lost := tr.Update(now.Add(time.Second), []detector.Box{box(1, 1, 11, 11)})
	require.Len(t, u2, 1)
	assert.Empty(t, lost)
	assert.False(t, u2[0].IsNew)
	assert.Equal(t, id, u2[0].Track.LocalTrackID, "a high-IoU box in the next frame must reuse the same local track id")
	assert.Equal(t, 2, u2[0].Track.ConsecutiveFrames)
}

func TestTracker_DisjointBoxStartsNewTrack(t *testing.T) {
	tr := NewTracker("cam1", 5)
	now := time.Now()

	u1, _ := tr.Update(now, []detector.Box{box(0, 0, 10, 10)})
	firstID := u1[0].Track.LocalTrackID

	u2, _ := tr.Update(now.Add(time.Second), []detector.Box{box(500, 500, 520, 520)})
	require.Len(t, u2, 1)
	assert.NotEqual(t, firstID, u2[0].Track.LocalTrackID)
	assert.True(t, u2[0].IsNew)
}

func TestTracker_TrackLostAfterMaxAgeWithoutUpdate(t *testing.T) {
	tr := NewTracker("cam1", 2)
	now := time.Now()

	u1, _ := tr.Update(now, []detector.Box{box(0, 0, 10, 10)})
	id := u1[0].Track.LocalTrackID

	// Three empty frames: timeSinceUpdate goes 1, 2, 3 — lost once it
	// exceeds maxAge (2).
	_, lost1 := tr.Update(now.Add(time.Second), nil)
	assert.Empty(t, lost1)
	_, lost2 := tr.Update(now.Add(2*time.Second), nil)
	assert.Empty(t, lost2)
	_, lost3 := tr.Update(now.Add(3*time.Second), nil)
	require.Len(t, lost3, 1)
	assert.Equal(t, id, lost3[0])
}

func TestTracker_TrackCountReflectsLiveTracks(t *testing.T) {
	tr := NewTracker("cam1", 5)
	now := time.Now()
	tr.Update(now, []detector.Box{box(0, 0, 10, 10), box(100, 100, 120, 120)})
	assert.Equal(t, 2, tr.TrackCount())
}

func TestTracker_HungarianPathUsedAboveThreshold(t *testing.T) {
	tr := NewTracker("cam1", 5)
	now := time.Now()

	boxes := make([]detector.Box, 0, assignmentThreshold+1)
	for i := 0; i < assignmentThreshold+1; i++ {
		x := float64(i * 100)
		boxes = append(boxes, box(x, x, x+20, x+20))
	}
	u1, _ := tr.Update(now, boxes)
	require.Len(t, u1, assignmentThreshold+1)

	ids := make(map[string]string, len(u1))
	for _, u := range u1 {
		ids[u.Track.LocalTrackID] = u.Track.LocalTrackID
	}

	u2, lost := tr.Update(now.Add(time.Second), boxes)
	require.Len(t, u2, assignmentThreshold+1)
	assert.Empty(t, lost)
	for _, u := range u2 {
		assert.False(t, u.IsNew, "repeated identical boxes above the Hungarian threshold must still re-associate to existing tracks")
		_, ok := ids[u.Track.LocalTrackID]
		assert.True(t, ok)
	}
}
