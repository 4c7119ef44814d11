package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/reident/internal/reidmodel"
)

func bbox(cx, cy float64) reidmodel.BBox {
	return reidmodel.BBox{X1: cx - 10, Y1: cy - 20, X2: cx + 10, Y2: cy + 20}
}

func TestSpatialMatch_NilTopologyIsNoop(t *testing.T) {
	q := Query{CameraID: "cam1", BBox: bbox(100, 100)}
	candidates := []Candidate{{
		GlobalID:         1,
		CurrentPositions: map[string]reidmodel.Position{"cam2": {BBox: bbox(100, 100), TS: time.Now()}},
	}}

	_, ok := SpatialMatch(nil, q, candidates, 50)
	assert.False(t, ok, "nil topology must never match, per Open Question 2")
}

func TestSpatialMatch_OverlappingCameraWithinTolerance(t *testing.T) {
	topo := &CameraTopology{Transitions: map[CameraPair]TransitionType{
		NewCameraPair("cam1", "cam2"): TransitionOverlap,
	}}
	q := Query{CameraID: "cam1", BBox: bbox(100, 100)}
	candidates := []Candidate{{
		GlobalID:         7,
		CurrentPositions: map[string]reidmodel.Position{"cam2": {BBox: bbox(110, 105), TS: time.Now()}},
	}}

	gid, ok := SpatialMatch(topo, q, candidates, 50)
	assert.True(t, ok)
	assert.Equal(t, int64(7), gid)
}

func TestSpatialMatch_OutsideToleranceIsRejected(t *testing.T) {
	topo := &CameraTopology{Transitions: map[CameraPair]TransitionType{
		NewCameraPair("cam1", "cam2"): TransitionOverlap,
	}}
	q := Query{CameraID: "cam1", BBox: bbox(100, 100)}
	candidates := []Candidate{{
		GlobalID:         7,
		CurrentPositions: map[string]reidmodel.Position{"cam2": {BBox: bbox(500, 500), TS: time.Now()}},
	}}

	_, ok := SpatialMatch(topo, q, candidates, 50)
	assert.False(t, ok)
}

func TestSpatialMatch_SameCameraPositionIgnored(t *testing.T) {
	topo := &CameraTopology{Transitions: map[CameraPair]TransitionType{
		NewCameraPair("cam1", "cam2"): TransitionOverlap,
	}}
	q := Query{CameraID: "cam1", BBox: bbox(100, 100)}
	candidates := []Candidate{{
		GlobalID:         7,
		CurrentPositions: map[string]reidmodel.Position{"cam1": {BBox: bbox(100, 100), TS: time.Now()}},
	}}

	_, ok := SpatialMatch(topo, q, candidates, 50)
	assert.False(t, ok, "a position on the query's own camera must never self-match")
}

func TestDimensionMatch_SkippedWhenEmbeddingPresent(t *testing.T) {
	candidates := []Candidate{{GlobalID: 1, AvgHeightPx: 180, AvgWidthPx: 60}}
	_, ok := DimensionMatch(candidates, 180, 60, 0.1, 0.9, true)
	assert.False(t, ok, "spec requires dimension match only when no embedding is available yet")
}

func TestDimensionMatch_WithinToleranceMatches(t *testing.T) {
	candidates := []Candidate{{GlobalID: 3, AvgHeightPx: 180, AvgWidthPx: 60}}
	gid, ok := DimensionMatch(candidates, 182, 59, 0.1, 0.9, false)
	assert.True(t, ok)
	assert.Equal(t, int64(3), gid)
}

func TestDimensionMatch_OutsideToleranceRejected(t *testing.T) {
	candidates := []Candidate{{GlobalID: 3, AvgHeightPx: 180, AvgWidthPx: 60}}
	_, ok := DimensionMatch(candidates, 220, 90, 0.1, 0.9, false)
	assert.False(t, ok)
}

func TestDimensionMatch_TieBreaksOnLowerGlobalID(t *testing.T) {
	candidates := []Candidate{
		{GlobalID: 5, AvgHeightPx: 180, AvgWidthPx: 60},
		{GlobalID: 2, AvgHeightPx: 180, AvgWidthPx: 60},
	}
	gid, ok := DimensionMatch(candidates, 180, 60, 0.1, 0.9, false)
	assert.True(t, ok)
	assert.Equal(t, int64(2), gid, "equal scores must deterministically prefer the lower global id")
}

func TestColorMatch_EmptyQueryFeaturesNeverMatch(t *testing.T) {
	candidates := []Candidate{{GlobalID: 1, ClothingHist: []float64{1, 0, 0}, SkinTone: []float64{0.5, 0.5, 0.5}}}
	_, ok := ColorMatch(candidates, nil, nil, ColorConfig{ClothingWeight: 0.6, SkinWeight: 0.4, Sigma: 0.25, Threshold: 0.7})
	assert.False(t, ok)
}

func TestColorMatch_IdenticalFeaturesMatch(t *testing.T) {
	hist := []float64{1, 2, 3, 4}
	skin := []float64{0.5, 0.4, 0.3}
	candidates := []Candidate{{GlobalID: 9, ClothingHist: hist, SkinTone: skin}}

	gid, ok := ColorMatch(candidates, hist, skin, ColorConfig{ClothingWeight: 0.6, SkinWeight: 0.4, Sigma: 0.25, Threshold: 0.7})
	assert.True(t, ok)
	assert.Equal(t, int64(9), gid)
}

func TestAppearanceMatch_EmptyEmbeddingNeverMatches(t *testing.T) {
	_, ok := AppearanceMatch(nil, nil, 0.5)
	assert.False(t, ok)
}
