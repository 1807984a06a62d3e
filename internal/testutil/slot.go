package testutil

import (
	"sync"

	"focustrack/internal/tracker"
)

// MemorySlot is an in-memory HandoffSlot with scriptable failures.
type MemorySlot struct {
	mu       sync.Mutex
	payload  *tracker.MigrationPayload
	loadErr  error
	clearErr error
	clears   int
}

var _ tracker.HandoffSlot = (*MemorySlot)(nil)

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// SetLoadErr makes every Load fail with err.
func (s *MemorySlot) SetLoadErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// SetClearErr makes every Clear fail with err.
func (s *MemorySlot) SetClearErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearErr = err
}

// Clears returns how many times Clear has been called.
func (s *MemorySlot) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

func (s *MemorySlot) Stage(p tracker.MigrationPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = &p
	return nil
}

func (s *MemorySlot) Load() (*tracker.MigrationPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.payload == nil {
		return nil, nil
	}
	p := *s.payload
	return &p, nil
}

func (s *MemorySlot) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.payload = nil
	return nil
}
