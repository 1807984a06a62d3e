package tracker

import (
	"fmt"
	"time"
)

// State is the activity the user reports being in.
type State string

const (
	StateFocus    State = "focus"
	StateDistract State = "distract"
	StateNone     State = "none"
)

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	switch s {
	case StateFocus, StateDistract, StateNone:
		return true
	}
	return false
}

// DayRecord is one calendar day's accounting for one identity.
//
// Totals bank completed runs only. StateSince marks when the open run
// started and is non-nil exactly when State is focus or distract; the
// open run is projected onto the totals at read time.
type DayRecord struct {
	DateKey      string
	FocusedMs    int64
	DistractedMs int64
	State        State
	StateSince   *time.Time
}

// NewDayRecord returns an empty, stopped record for the given day.
func NewDayRecord(dateKey string) DayRecord {
	return DayRecord{DateKey: dateKey, State: StateNone}
}

// Validate checks the record's internal consistency.
func (r DayRecord) Validate() error {
	if !r.State.Valid() {
		return fmt.Errorf("unknown state %q", r.State)
	}
	if r.State == StateNone && r.StateSince != nil {
		return fmt.Errorf("stopped record carries a run start timestamp")
	}
	if r.State != StateNone && r.StateSince == nil {
		return fmt.Errorf("state %s without a run start timestamp", r.State)
	}
	if r.FocusedMs < 0 || r.DistractedMs < 0 {
		return fmt.Errorf("negative totals")
	}
	return nil
}

// DateKey formats t as the local-day key records are bucketed under.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
