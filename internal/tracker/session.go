package tracker

import (
	"sync"
	"time"
)

// Session is the in-memory mirror of today's record. It is the only
// mutable copy; stores, subscriptions and displays all work against
// snapshots of it.
type Session struct {
	mu  sync.Mutex
	rec DayRecord
}

func NewSession(dateKey string) *Session {
	return &Session{rec: NewDayRecord(dateKey)}
}

// Snapshot returns a copy of the current record.
func (s *Session) Snapshot() DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(s.rec)
}

// SetState folds the open run at now and starts next, returning the
// record after the transition.
func (s *Session) SetState(next State, now time.Time) DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = Transition(s.rec, next, now)
	return copyRecord(s.rec)
}

// Adopt replaces the session contents with rec, whether from a store
// read at startup or a subscription delivery.
func (s *Session) Adopt(rec DayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = copyRecord(rec)
}

// Reset empties the session for dateKey. Called on identity changes so
// one account's time never leaks into another's view.
func (s *Session) Reset(dateKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = NewDayRecord(dateKey)
}

// Displayed projects the open run to now and returns both totals plus
// the current state.
func (s *Session) Displayed(now time.Time) (focusedMs, distractedMs int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, d := DisplayedTotals(s.rec, now)
	return f, d, s.rec.State
}

func copyRecord(r DayRecord) DayRecord {
	if r.StateSince != nil {
		start := *r.StateSince
		r.StateSince = &start
	}
	return r
}
