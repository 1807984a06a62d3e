package tracker

import (
	"testing"
	"time"
)

var base = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func openRecord(state State, focusedMs, distractedMs int64, since time.Time) DayRecord {
	return DayRecord{
		DateKey:      "2024-01-15",
		FocusedMs:    focusedMs,
		DistractedMs: distractedMs,
		State:        state,
		StateSince:   &since,
	}
}

func TestElapsedSince(t *testing.T) {
	if got := ElapsedSince(base, base.Add(90*time.Second)); got != 90000 {
		t.Errorf("ElapsedSince() = %d, want 90000", got)
	}

	// A run start ahead of the clock counts as zero, never negative.
	if got := ElapsedSince(base.Add(time.Minute), base); got != 0 {
		t.Errorf("ElapsedSince() = %d, want 0", got)
	}
}

func TestFold(t *testing.T) {
	t.Run("banks an open focus run", func(t *testing.T) {
		rec := openRecord(StateFocus, 60000, 0, base)
		got := Fold(rec, base.Add(30*time.Second))

		if got.FocusedMs != 90000 {
			t.Errorf("FocusedMs = %d, want 90000", got.FocusedMs)
		}
		if got.DistractedMs != 0 {
			t.Errorf("DistractedMs = %d, want 0", got.DistractedMs)
		}
		if got.State != StateNone || got.StateSince != nil {
			t.Errorf("got state %q since %v, want stopped", got.State, got.StateSince)
		}
	})

	t.Run("banks an open distract run", func(t *testing.T) {
		rec := openRecord(StateDistract, 0, 5000, base)
		got := Fold(rec, base.Add(10*time.Second))

		if got.DistractedMs != 15000 {
			t.Errorf("DistractedMs = %d, want 15000", got.DistractedMs)
		}
		if got.FocusedMs != 0 {
			t.Errorf("FocusedMs = %d, want 0", got.FocusedMs)
		}
	})

	t.Run("stopped record is unchanged", func(t *testing.T) {
		rec := DayRecord{DateKey: "2024-01-15", FocusedMs: 1000, State: StateNone}
		got := Fold(rec, base)

		if got != rec {
			t.Errorf("Fold() = %+v, want %+v", got, rec)
		}
	})

	t.Run("clamps a run start in the future", func(t *testing.T) {
		rec := openRecord(StateFocus, 60000, 0, base.Add(time.Hour))
		got := Fold(rec, base)

		if got.FocusedMs != 60000 {
			t.Errorf("FocusedMs = %d, want 60000", got.FocusedMs)
		}
	})
}

func TestTransition(t *testing.T) {
	t.Run("starts focus from stopped", func(t *testing.T) {
		rec := NewDayRecord("2024-01-15")
		got := Transition(rec, StateFocus, base)

		if got.State != StateFocus {
			t.Errorf("State = %q, want %q", got.State, StateFocus)
		}
		if got.StateSince == nil || !got.StateSince.Equal(base) {
			t.Errorf("StateSince = %v, want %v", got.StateSince, base)
		}
		if got.FocusedMs != 0 || got.DistractedMs != 0 {
			t.Errorf("totals = (%d, %d), want (0, 0)", got.FocusedMs, got.DistractedMs)
		}
	})

	t.Run("switching sides banks the old run", func(t *testing.T) {
		rec := Transition(NewDayRecord("2024-01-15"), StateFocus, base)
		got := Transition(rec, StateDistract, base.Add(time.Minute))

		if got.FocusedMs != 60000 {
			t.Errorf("FocusedMs = %d, want 60000", got.FocusedMs)
		}
		if got.State != StateDistract {
			t.Errorf("State = %q, want %q", got.State, StateDistract)
		}
		if got.StateSince == nil || !got.StateSince.Equal(base.Add(time.Minute)) {
			t.Errorf("StateSince = %v, want %v", got.StateSince, base.Add(time.Minute))
		}
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		rec := Transition(NewDayRecord("2024-01-15"), StateFocus, base)
		rec = Transition(rec, StateNone, base.Add(time.Minute))
		got := Transition(rec, StateNone, base.Add(2*time.Minute))

		if got.FocusedMs != 60000 {
			t.Errorf("FocusedMs = %d, want 60000", got.FocusedMs)
		}
		if got.State != StateNone || got.StateSince != nil {
			t.Errorf("got state %q since %v, want stopped", got.State, got.StateSince)
		}
	})

	t.Run("repeating the state banks and restarts the run", func(t *testing.T) {
		rec := Transition(NewDayRecord("2024-01-15"), StateFocus, base)
		got := Transition(rec, StateFocus, base.Add(10*time.Second))

		if got.FocusedMs != 10000 {
			t.Errorf("FocusedMs = %d, want 10000", got.FocusedMs)
		}
		if got.StateSince == nil || !got.StateSince.Equal(base.Add(10*time.Second)) {
			t.Errorf("StateSince = %v, want restart at %v", got.StateSince, base.Add(10*time.Second))
		}
	})

	t.Run("a day of transitions conserves elapsed time", func(t *testing.T) {
		rec := NewDayRecord("2024-01-15")
		rec = Transition(rec, StateFocus, base)
		rec = Transition(rec, StateDistract, base.Add(1*time.Minute))
		rec = Transition(rec, StateFocus, base.Add(3*time.Minute))
		rec = Transition(rec, StateNone, base.Add(6*time.Minute))

		if rec.FocusedMs != 4*60*1000 {
			t.Errorf("FocusedMs = %d, want %d", rec.FocusedMs, 4*60*1000)
		}
		if rec.DistractedMs != 2*60*1000 {
			t.Errorf("DistractedMs = %d, want %d", rec.DistractedMs, 2*60*1000)
		}
		if total := rec.FocusedMs + rec.DistractedMs; total != 6*60*1000 {
			t.Errorf("total = %d, want the full six minutes", total)
		}
	})
}

func TestDisplayedTotals(t *testing.T) {
	t.Run("projects the open run without modifying the record", func(t *testing.T) {
		rec := openRecord(StateFocus, 60000, 5000, base)
		f, d := DisplayedTotals(rec, base.Add(30*time.Second))

		if f != 90000 || d != 5000 {
			t.Errorf("DisplayedTotals() = (%d, %d), want (90000, 5000)", f, d)
		}
		if rec.FocusedMs != 60000 {
			t.Errorf("record was modified: FocusedMs = %d", rec.FocusedMs)
		}
	})

	t.Run("matches what a fold would bank", func(t *testing.T) {
		rec := openRecord(StateDistract, 1000, 2000, base)
		now := base.Add(42 * time.Second)

		f, d := DisplayedTotals(rec, now)
		folded := Fold(rec, now)

		if f != folded.FocusedMs || d != folded.DistractedMs {
			t.Errorf("DisplayedTotals() = (%d, %d), Fold banked (%d, %d)",
				f, d, folded.FocusedMs, folded.DistractedMs)
		}
	})

	t.Run("stopped record projects nothing", func(t *testing.T) {
		rec := DayRecord{DateKey: "2024-01-15", FocusedMs: 1234, DistractedMs: 5678, State: StateNone}
		f, d := DisplayedTotals(rec, base)

		if f != 1234 || d != 5678 {
			t.Errorf("DisplayedTotals() = (%d, %d), want stored totals unchanged", f, d)
		}
	})
}
