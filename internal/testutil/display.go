package testutil

import (
	"sync"

	"focustrack/internal/tracker"
)

// RecordingDisplay captures every update and notice it receives.
type RecordingDisplay struct {
	mu      sync.Mutex
	updates []tracker.DisplayUpdate
	notices []string
}

var _ tracker.Display = (*RecordingDisplay)(nil)

func NewRecordingDisplay() *RecordingDisplay {
	return &RecordingDisplay{}
}

func (d *RecordingDisplay) Update(u tracker.DisplayUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, u)
}

func (d *RecordingDisplay) Notice(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, msg)
}

// Updates returns a copy of all frames received so far.
func (d *RecordingDisplay) Updates() []tracker.DisplayUpdate {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]tracker.DisplayUpdate, len(d.updates))
	copy(out, d.updates)
	return out
}

// LastUpdate returns the most recent frame, if any.
func (d *RecordingDisplay) LastUpdate() (tracker.DisplayUpdate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.updates) == 0 {
		return tracker.DisplayUpdate{}, false
	}
	return d.updates[len(d.updates)-1], true
}

// Notices returns a copy of all notices received so far.
func (d *RecordingDisplay) Notices() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.notices))
	copy(out, d.notices)
	return out
}
