package store

import (
	"context"
	"fmt"
	"sync"

	"focustrack/internal/tracker"
)

// MemoryStore is an in-memory implementation of the RecordStore
// interface. It backs the degraded mode used when the SQLite file
// cannot be opened, and is useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	records map[string]tracker.DayRecord
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]tracker.DayRecord)}
}

func (m *MemoryStore) Get(_ context.Context, dateKey string) (*tracker.DayRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[dateKey]
	if !ok {
		return nil, nil
	}
	if rec.StateSince != nil {
		start := *rec.StateSince
		rec.StateSince = &start
	}
	return &rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec tracker.DayRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to store record for %s: %w", rec.DateKey, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.StateSince != nil {
		start := *rec.StateSince
		rec.StateSince = &start
	}
	m.records[rec.DateKey] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, dateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, dateKey)
	return nil
}

// Compile-time check that MemoryStore implements the RecordStore interface
var _ tracker.RecordStore = (*MemoryStore)(nil)
