package engine

import (
	"context"

	"github.com/your-org/reident/internal/reidmodel"
)

// fakeStore is a minimal in-memory PersistentStore double, letting engine
// tests exercise Bootstrap/ColdRead/SyncDirty without a real database.
type fakeStore struct {
	active       []*reidmodel.GlobalPerson
	coldMatch    *reidmodel.GlobalPerson
	coldSim      float64
	nameCursor   int
	syncedCalls  [][]*reidmodel.GlobalPerson
	loadErr      error
	coldReadErr  error
	syncDirtyErr error
}

func (s *fakeStore) LoadActivePersons(ctx context.Context) ([]*reidmodel.GlobalPerson, error) {
	return s.active, s.loadErr
}

func (s *fakeStore) ColdRead(ctx context.Context, embedding []float32, threshold float64) (*reidmodel.GlobalPerson, bool, error) {
	if s.coldReadErr != nil {
		return nil, false, s.coldReadErr
	}
	if s.coldMatch == nil || s.coldSim < threshold {
		return nil, false, nil
	}
	return s.coldMatch, true, nil
}

func (s *fakeStore) SyncDirty(ctx context.Context, persons []*reidmodel.GlobalPerson) error {
	if s.syncDirtyErr != nil {
		return s.syncDirtyErr
	}
	s.syncedCalls = append(s.syncedCalls, persons)
	return nil
}

func (s *fakeStore) LoadNameCursor(ctx context.Context) (int, error) {
	return s.nameCursor, nil
}

func (s *fakeStore) SetNameCursorHint(cursor int) {}
