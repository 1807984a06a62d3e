package tracker

import "time"

// ElapsedSince returns the milliseconds from since to now, clamped at
// zero so a clock running behind the stored timestamp never subtracts
// time.
func ElapsedSince(since, now time.Time) int64 {
	ms := now.Sub(since).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// Fold banks the open run, if any, into the matching total and returns
// the record stopped.
func Fold(r DayRecord, now time.Time) DayRecord {
	if r.State == StateNone || r.StateSince == nil {
		r.State = StateNone
		r.StateSince = nil
		return r
	}
	elapsed := ElapsedSince(*r.StateSince, now)
	switch r.State {
	case StateFocus:
		r.FocusedMs += elapsed
	case StateDistract:
		r.DistractedMs += elapsed
	}
	r.State = StateNone
	r.StateSince = nil
	return r
}

// Transition folds the open run at now and starts next. Passing
// StateNone leaves the record stopped; repeating the current state
// banks the run so far and restarts it from now.
func Transition(r DayRecord, next State, now time.Time) DayRecord {
	r = Fold(r, now)
	if next == StateNone {
		return r
	}
	r.State = next
	start := now
	r.StateSince = &start
	return r
}

// DisplayedTotals returns both totals with the open run projected to
// now. The result equals what Fold at now would bank; r is not
// modified.
func DisplayedTotals(r DayRecord, now time.Time) (focusedMs, distractedMs int64) {
	focusedMs = r.FocusedMs
	distractedMs = r.DistractedMs
	if r.StateSince == nil {
		return focusedMs, distractedMs
	}
	elapsed := ElapsedSince(*r.StateSince, now)
	switch r.State {
	case StateFocus:
		focusedMs += elapsed
	case StateDistract:
		distractedMs += elapsed
	}
	return focusedMs, distractedMs
}
