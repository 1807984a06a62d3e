package testutil

import (
	"context"

	"focustrack/internal/store"
	"focustrack/internal/tracker"
)

// NewTestStore returns an empty in-memory record store.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}

// FlakyStore wraps a RecordStore and fails the operations whose error
// fields are set.
type FlakyStore struct {
	Inner     tracker.RecordStore
	GetErr    error
	PutErr    error
	DeleteErr error
}

var _ tracker.RecordStore = (*FlakyStore)(nil)

func (f *FlakyStore) Get(ctx context.Context, dateKey string) (*tracker.DayRecord, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Inner.Get(ctx, dateKey)
}

func (f *FlakyStore) Put(ctx context.Context, rec tracker.DayRecord) error {
	if f.PutErr != nil {
		return f.PutErr
	}
	return f.Inner.Put(ctx, rec)
}

func (f *FlakyStore) Delete(ctx context.Context, dateKey string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Inner.Delete(ctx, dateKey)
}
