package testutil

import (
	"context"
	"sync"

	"focustrack/internal/tracker"
)

// ScriptedCloud implements tracker.CloudStore against in-memory state,
// with scriptable write failures and hand-driven subscriptions.
type ScriptedCloud struct {
	mu      sync.Mutex
	records map[string]tracker.DayRecord
	puts    []tracker.DayRecord
	putErrs []error
	subs    []*ScriptedSub
	subErr  error
}

var _ tracker.CloudStore = (*ScriptedCloud)(nil)

func NewScriptedCloud() *ScriptedCloud {
	return &ScriptedCloud{records: make(map[string]tracker.DayRecord)}
}

func cloudKey(userID, dateKey string) string { return userID + "|" + dateKey }

// SetRecord seeds a stored record for userID.
func (c *ScriptedCloud) SetRecord(userID string, rec tracker.DayRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[cloudKey(userID, rec.DateKey)] = rec
}

// StoredRecord returns the stored record, or nil when absent.
func (c *ScriptedCloud) StoredRecord(userID, dateKey string) *tracker.DayRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[cloudKey(userID, dateKey)]
	if !ok {
		return nil
	}
	return &rec
}

// FailNextPut queues err for the next MergePut call. Queue several to
// fail several calls in order; nil entries let a call through.
func (c *ScriptedCloud) FailNextPut(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putErrs = append(c.putErrs, err)
}

// Puts returns a copy of every record MergePut has accepted, in order.
func (c *ScriptedCloud) Puts() []tracker.DayRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]tracker.DayRecord, len(c.puts))
	copy(out, c.puts)
	return out
}

// SetSubscribeErr makes every Subscribe call fail with err.
func (c *ScriptedCloud) SetSubscribeErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subErr = err
}

// Subs returns every subscription opened so far, in order.
func (c *ScriptedCloud) Subs() []*ScriptedSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ScriptedSub, len(c.subs))
	copy(out, c.subs)
	return out
}

func (c *ScriptedCloud) Get(_ context.Context, userID, dateKey string) (*tracker.DayRecord, error) {
	return c.StoredRecord(userID, dateKey), nil
}

func (c *ScriptedCloud) MergePut(_ context.Context, userID string, rec tracker.DayRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.putErrs) > 0 {
		err := c.putErrs[0]
		c.putErrs = c.putErrs[1:]
		if err != nil {
			return err
		}
	}
	c.records[cloudKey(userID, rec.DateKey)] = rec
	c.puts = append(c.puts, rec)
	return nil
}

func (c *ScriptedCloud) Delete(_ context.Context, userID, dateKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, cloudKey(userID, dateKey))
	return nil
}

func (c *ScriptedCloud) Subscribe(_ context.Context, userID, dateKey string) (tracker.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return nil, c.subErr
	}
	sub := &ScriptedSub{
		UserID:  userID,
		DateKey: dateKey,
		events:  make(chan tracker.SnapshotEvent, 16),
	}
	c.subs = append(c.subs, sub)
	return sub, nil
}

// ScriptedSub is a subscription whose deliveries tests push by hand.
//
// Close marks the subscription closed but leaves the event channel
// open, so a test can model a delivery that was already in flight when
// the consumer detached.
type ScriptedSub struct {
	UserID  string
	DateKey string

	mu     sync.Mutex
	events chan tracker.SnapshotEvent
	closed bool
}

var _ tracker.Subscription = (*ScriptedSub)(nil)

func (s *ScriptedSub) Events() <-chan tracker.SnapshotEvent { return s.events }

func (s *ScriptedSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *ScriptedSub) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Push delivers a snapshot; rec nil means the day has no record.
func (s *ScriptedSub) Push(rec *tracker.DayRecord) {
	s.events <- tracker.SnapshotEvent{Record: rec}
}

// PushErr delivers a transport failure.
func (s *ScriptedSub) PushErr(err error) {
	s.events <- tracker.SnapshotEvent{Err: err}
}
