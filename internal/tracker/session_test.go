package tracker

import (
	"testing"
	"time"
)

func TestSessionSetState(t *testing.T) {
	s := NewSession("2024-01-15")

	rec := s.SetState(StateFocus, base)
	if rec.State != StateFocus {
		t.Fatalf("State = %q, want %q", rec.State, StateFocus)
	}

	rec = s.SetState(StateNone, base.Add(time.Minute))
	if rec.FocusedMs != 60000 {
		t.Errorf("FocusedMs = %d, want 60000", rec.FocusedMs)
	}
	if rec.State != StateNone || rec.StateSince != nil {
		t.Errorf("got state %q since %v, want stopped", rec.State, rec.StateSince)
	}
}

func TestSessionSnapshotIsACopy(t *testing.T) {
	s := NewSession("2024-01-15")
	s.SetState(StateFocus, base)

	snap := s.Snapshot()
	*snap.StateSince = snap.StateSince.Add(time.Hour)

	again := s.Snapshot()
	if !again.StateSince.Equal(base) {
		t.Errorf("session run start moved to %v after mutating a snapshot", again.StateSince)
	}
}

func TestSessionAdopt(t *testing.T) {
	s := NewSession("2024-01-15")
	s.SetState(StateDistract, base)

	since := base.Add(time.Minute)
	s.Adopt(DayRecord{
		DateKey:    "2024-01-15",
		FocusedMs:  500,
		State:      StateFocus,
		StateSince: &since,
	})

	f, d, state := s.Displayed(base.Add(2 * time.Minute))
	if f != 500+60000 {
		t.Errorf("focused = %d, want %d", f, 500+60000)
	}
	if d != 0 {
		t.Errorf("distracted = %d, want 0", d)
	}
	if state != StateFocus {
		t.Errorf("state = %q, want %q", state, StateFocus)
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession("2024-01-15")
	s.SetState(StateFocus, base)

	s.Reset("2024-01-16")

	rec := s.Snapshot()
	if rec.DateKey != "2024-01-16" {
		t.Errorf("DateKey = %q, want %q", rec.DateKey, "2024-01-16")
	}
	if rec.FocusedMs != 0 || rec.State != StateNone {
		t.Errorf("got %+v, want an empty stopped record", rec)
	}
}
