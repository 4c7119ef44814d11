package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/reident/internal/matcher"
	"github.com/your-org/reident/internal/reidmodel"
)

func bbox(cx, cy float64) reidmodel.BBox {
	return reidmodel.BBox{X1: cx - 10, Y1: cy - 20, X2: cx + 10, Y2: cy + 20}
}

func TestResolve_BelowStableThresholdIsProvisional(t *testing.T) {
	e := New(testConfig(), nil, nil)
	gid := e.Resolve(context.Background(), ResolveInput{
		CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100),
		ConsecutiveFrames: 1,
	})
	assert.Equal(t, int64(0), gid, "an unstable track must never mint or bind a global id")
}

func TestResolve_NoMatchMintsNewPerson(t *testing.T) {
	e := New(testConfig(), nil, nil)
	gid := e.Resolve(context.Background(), ResolveInput{
		CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100),
		ConsecutiveFrames: 3,
	})
	require.NotEqual(t, int64(0), gid)
	assert.Equal(t, 1, e.ActivePersonCount())
	assert.NotEmpty(t, e.persons[gid].AssignedName, "AutoName enabled means a minted person gets an assigned name")
}

func TestResolve_BindingFastPathReusesGlobalID(t *testing.T) {
	e := New(testConfig(), nil, nil)
	ctx := context.Background()

	gid1 := e.Resolve(ctx, ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3})
	gid2 := e.Resolve(ctx, ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(105, 102), ConsecutiveFrames: 4})

	assert.Equal(t, gid1, gid2, "a repeat observation of the same (camera,local_track) must reuse its bound global id")
	assert.Equal(t, 2, e.persons[gid1].TotalAppearances)
}

func TestResolve_SpatialMatchAcrossCameras(t *testing.T) {
	topo := &matcher.CameraTopology{Transitions: map[matcher.CameraPair]matcher.TransitionType{
		matcher.NewCameraPair("cam1", "cam2"): matcher.TransitionOverlap,
	}}
	e := New(testConfig(), nil, topo)
	ctx := context.Background()

	gid1 := e.Resolve(ctx, ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3})
	require.NotZero(t, gid1)

	gid2 := e.Resolve(ctx, ResolveInput{CameraID: "cam2", LocalTrackID: "t9", BBox: bbox(105, 102), ConsecutiveFrames: 3})
	assert.Equal(t, gid1, gid2, "a spatially overlapping observation on another camera must resolve to the same global id")
}

func TestResolve_DimensionMatchOnlyWithoutEmbedding(t *testing.T) {
	e := New(testConfig(), nil, nil)
	ctx := context.Background()

	gid1 := e.Resolve(ctx, ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3})
	require.NotZero(t, gid1)

	// Far away (no spatial match possible, topology nil anyway), similar
	// dimensions, no embedding: dimension stage should match.
	gid2 := e.Resolve(ctx, ResolveInput{CameraID: "cam2", LocalTrackID: "t2", BBox: bbox(900, 900), ConsecutiveFrames: 3})
	assert.Equal(t, gid1, gid2)
}

func TestResolve_ColorMatchWhenEmbeddingAbsentButFeaturesPresent(t *testing.T) {
	e := New(testConfig(), nil, nil)
	ctx := context.Background()
	hist := make([]float64, 48)
	hist[0] = 1
	skin := []float64{0.5, 0.5, 0.5}

	gid1 := e.Resolve(ctx, ResolveInput{
		CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3,
		ClothingHist: hist, SkinTone: skin,
	})
	require.NotZero(t, gid1)

	// Different dimensions (so dimension stage rejects) but identical
	// color features: color stage should match.
	gid2 := e.Resolve(ctx, ResolveInput{
		CameraID: "cam2", LocalTrackID: "t2", BBox: reidmodel.BBox{X1: 0, Y1: 0, X2: 500, Y2: 900}, ConsecutiveFrames: 3,
		ClothingHist: hist, SkinTone: skin,
	})
	assert.Equal(t, gid1, gid2)
}

func TestResolve_AppearanceMatchByEmbedding(t *testing.T) {
	e := New(testConfig(), nil, nil)
	ctx := context.Background()
	emb := []float32{1, 0, 0}

	gid1 := e.Resolve(ctx, ResolveInput{
		CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3,
		Embedding: emb, EmbeddingQuality: 0.9,
	})
	require.NotZero(t, gid1)

	gid2 := e.Resolve(ctx, ResolveInput{
		CameraID: "cam2", LocalTrackID: "t2", BBox: reidmodel.BBox{X1: 0, Y1: 0, X2: 900, Y2: 900}, ConsecutiveFrames: 3,
		Embedding: []float32{1, 0, 0}, EmbeddingQuality: 0.9,
	})
	assert.Equal(t, gid1, gid2, "an identical embedding must resolve to the same global id via the appearance stage")
}

func TestResolve_ColdReadReactivatesInactivePerson(t *testing.T) {
	cold := &reidmodel.GlobalPerson{GlobalID: 99, Embedding: []float32{0, 1, 0}, IsActive: false}
	store := &fakeStore{coldMatch: cold, coldSim: 1.0}
	e := New(testConfig(), store, nil)

	gid := e.Resolve(context.Background(), ResolveInput{
		CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3,
		Embedding: []float32{0, 1, 0}, EmbeddingQuality: 0.9,
	})
	assert.Equal(t, int64(99), gid)
	assert.True(t, e.persons[99].IsActive)
}

func TestResolve_ReleasedBindingIsNotReusedForNewTrack(t *testing.T) {
	e := New(testConfig(), nil, nil)
	ctx := context.Background()

	gid := e.Resolve(ctx, ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3})
	require.NotZero(t, gid)

	e.ReleaseBinding("cam1", "t1")

	// Same local track id reused for a brand-new physical track right
	// after release, far away: should mint a second person, not reuse gid.
	gid2 := e.Resolve(ctx, ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: reidmodel.BBox{X1: 0, Y1: 0, X2: 900, Y2: 900}, ConsecutiveFrames: 3})
	assert.NotEqual(t, gid, gid2)
}

func TestRename_UnknownGlobalIDFails(t *testing.T) {
	e := New(testConfig(), nil, nil)
	assert.False(t, e.Rename(12345, "bob"))
}

func TestRename_KnownGlobalIDUpdatesAssignedName(t *testing.T) {
	e := New(testConfig(), nil, nil)
	gid := e.Resolve(context.Background(), ResolveInput{CameraID: "cam1", LocalTrackID: "t1", BBox: bbox(100, 100), ConsecutiveFrames: 3})

	ok := e.Rename(gid, "bob")
	require.True(t, ok)
	assert.Equal(t, "bob", e.persons[gid].AssignedName)
}
