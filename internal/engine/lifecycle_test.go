package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/reident/internal/reidmodel"
)

func TestCleanupTick_EvictsPersonsPastTimeout(t *testing.T) {
	e := New(testConfig(), nil, nil)
	base := time.Now()
	e.persons[1] = &reidmodel.GlobalPerson{GlobalID: 1, IsActive: true, LastSeenTS: base}
	e.persons[2] = &reidmodel.GlobalPerson{GlobalID: 2, IsActive: true, LastSeenTS: base}
	e.index.Add(1, []float32{1, 0})
	e.index.Add(2, []float32{0, 1})

	e.cleanupTick(base.Add(e.cfg.PersonTimeout + time.Second))

	assert.False(t, e.persons[1].IsActive)
	assert.False(t, e.persons[2].IsActive)
	assert.Equal(t, 0, e.index.Len(), "an evicted person must be removed from the vector index")
}

func TestCleanupTick_PrunesStalePositionsOnLiveMember(t *testing.T) {
	e := New(testConfig(), nil, nil)
	base := time.Now()
	e.persons[1] = &reidmodel.GlobalPerson{
		GlobalID:   1,
		IsActive:   true,
		LastSeenTS: base,
		CurrentPositions: map[string]reidmodel.Position{
			"cam1": {BBox: bbox(1, 1), TS: base},
		},
	}

	e.cleanupTick(base.Add(e.cfg.PositionTTL + time.Second))

	assert.True(t, e.persons[1].IsActive, "still within PersonTimeout, must remain active")
	assert.Empty(t, e.persons[1].CurrentPositions, "a stale position past PositionTTL must be pruned")
}

func TestSyncTick_OnlySyncsDirtyPersons(t *testing.T) {
	store := &fakeStore{}
	e := New(testConfig(), store, nil)
	e.persons[1] = &reidmodel.GlobalPerson{GlobalID: 1, IsActive: true}
	e.persons[2] = &reidmodel.GlobalPerson{GlobalID: 2, IsActive: true}
	e.persons[1].MarkDirty()

	e.syncTick(context.Background())

	require.Len(t, store.syncedCalls, 1)
	assert.Len(t, store.syncedCalls[0], 1)
	assert.Equal(t, int64(1), store.syncedCalls[0][0].GlobalID)
	assert.False(t, e.persons[1].Dirty(), "a successful sync must clear the dirty flag")
}

func TestSyncTick_NoDirtyPersonsSkipsStoreCall(t *testing.T) {
	store := &fakeStore{}
	e := New(testConfig(), store, nil)
	e.persons[1] = &reidmodel.GlobalPerson{GlobalID: 1, IsActive: true}

	e.syncTick(context.Background())

	assert.Empty(t, store.syncedCalls)
}

func TestSyncTick_FailureLeavesDirtyFlagSetForRetry(t *testing.T) {
	store := &fakeStore{syncDirtyErr: assertErr{}}
	e := New(testConfig(), store, nil)
	e.persons[1] = &reidmodel.GlobalPerson{GlobalID: 1, IsActive: true}
	e.persons[1].MarkDirty()

	e.syncTick(context.Background())

	assert.True(t, e.persons[1].Dirty(), "a failed sync tick must retry the same dirty person next tick")
}

type assertErr struct{}

func (assertErr) Error() string { return "sync failed" }
