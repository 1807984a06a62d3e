package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned for calls made after the coordinator's Run
// loop has exited.
var ErrStopped = errors.New("tracker: coordinator stopped")

const defaultTickEvery = time.Second

// Options tune a Coordinator. Zero values get defaults.
type Options struct {
	// TickEvery is the display refresh period. Defaults to one second.
	TickEvery time.Duration
}

// Coordinator routes reads and writes to whichever store is
// authoritative for the current identity: the local store while
// anonymous, the cloud store while signed in.
//
// A single event loop serializes identity changes, subscription
// deliveries and state transitions, so a migration merge can never
// interleave with an adoption. The display tick is the only concurrent
// reader and works from session snapshots; deliveries and ticks carry
// the identity epoch they were started under and are dropped when it
// no longer matches.
type Coordinator struct {
	session  *Session
	local    RecordStore
	cloud    CloudStore
	auth     Authenticator
	slot     HandoffSlot
	migrator *Migrator
	clock    Clock
	logger   Logger
	display  Display

	tickEvery time.Duration

	epoch    atomic.Uint64
	identity atomic.Pointer[Identity]

	actions   chan actionReq
	snaps     chan taggedEvent
	done      chan struct{}
	ready     chan struct{}
	readyOnce sync.Once

	// Loop-owned; touched only from Run's goroutine.
	dateKey  string
	sub      Subscription
	stopTick context.CancelFunc
	ticking  bool
}

type actionReq struct {
	next  State
	reply chan DayRecord
}

type taggedEvent struct {
	epoch uint64
	ev    SnapshotEvent
}

func NewCoordinator(local RecordStore, cloud CloudStore, auth Authenticator, slot HandoffSlot, clock Clock, logger Logger, display Display, opts Options) *Coordinator {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if display == nil {
		display = NopDisplay{}
	}
	tickEvery := opts.TickEvery
	if tickEvery <= 0 {
		tickEvery = defaultTickEvery
	}
	return &Coordinator{
		session:   NewSession(DateKey(clock.Now())),
		local:     local,
		cloud:     cloud,
		auth:      auth,
		slot:      slot,
		migrator:  NewMigrator(cloud, local, slot, logger),
		clock:     clock,
		logger:    logger,
		display:   display,
		tickEvery: tickEvery,
		actions:   make(chan actionReq),
		snaps:     make(chan taggedEvent),
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
	}
}

// Run drives the coordinator until ctx is canceled. It resumes any
// stored sign-in, then serves identity changes, snapshot deliveries
// and SetState calls from a single loop.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.shutdown()
	id, err := c.auth.Resume(ctx)
	if err != nil {
		c.logger.Warn("could not resume stored sign-in; starting anonymous", "error", err)
		id = nil
	}
	c.activate(ctx, id)
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-c.auth.Changes():
			c.activate(ctx, id)
		case te := <-c.snaps:
			c.handleSnapshot(ctx, te)
		case req := <-c.actions:
			c.handleAction(ctx, req)
		}
	}
}

// SetState requests a transition and returns the record after the fold
// and restart have been applied and persisted.
func (c *Coordinator) SetState(ctx context.Context, next State) (DayRecord, error) {
	if !next.Valid() {
		return DayRecord{}, fmt.Errorf("unknown state %q", next)
	}
	req := actionReq{next: next, reply: make(chan DayRecord, 1)}
	select {
	case c.actions <- req:
	case <-c.done:
		return DayRecord{}, ErrStopped
	case <-ctx.Done():
		return DayRecord{}, ctx.Err()
	}
	select {
	case rec := <-req.reply:
		return rec, nil
	case <-c.done:
		return DayRecord{}, ErrStopped
	case <-ctx.Done():
		return DayRecord{}, ctx.Err()
	}
}

// WaitReady blocks until the first identity activation has loaded its
// day, so one-shot callers can transition without racing the initial
// adoption.
func (c *Coordinator) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns the current frame without waiting for a tick.
func (c *Coordinator) Now() DisplayUpdate { return c.frame() }

// activate switches the loop to a new identity: the old subscription
// and tick stop, the epoch advances so their stragglers are dropped,
// and the session restarts empty before the new tier's record is
// loaded.
func (c *Coordinator) activate(ctx context.Context, id *Identity) {
	c.detach()
	c.epoch.Add(1)
	c.identity.Store(id)
	c.dateKey = DateKey(c.clock.Now())
	// TODO: re-key the session when the local day rolls over; the day
	// is currently pinned at activation.
	c.session.Reset(c.dateKey)

	if id == nil {
		c.logger.Info("tracking anonymously", "date", c.dateKey)
		rec, err := c.local.Get(ctx, c.dateKey)
		switch {
		case err != nil:
			c.logger.Warn("local read failed; starting from an empty day", "date", c.dateKey, "error", err)
		case rec != nil:
			c.session.Adopt(*rec)
		}
		c.startTick(ctx)
		c.signalReady()
		return
	}

	c.logger.Info("tracking signed in", "user_id", id.UserID, "date", c.dateKey)
	sub, err := c.cloud.Subscribe(ctx, id.UserID, c.dateKey)
	if err != nil {
		c.logger.Error("cloud subscription unavailable", "user_id", id.UserID, "error", err)
		c.display.Notice("sync unavailable: " + err.Error())
		c.startTick(ctx)
		c.signalReady()
		return
	}
	c.sub = sub
	go c.pump(sub, c.epoch.Load())
}

// pump forwards one subscription's events into the loop, tagged with
// the epoch the subscription was opened under.
func (c *Coordinator) pump(sub Subscription, epoch uint64) {
	for ev := range sub.Events() {
		select {
		case c.snaps <- taggedEvent{epoch: epoch, ev: ev}:
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleSnapshot(ctx context.Context, te taggedEvent) {
	if te.epoch != c.epoch.Load() {
		c.logger.Debug("dropping delivery from a previous identity", "epoch", te.epoch)
		return
	}
	if te.ev.Err != nil {
		c.logger.Warn("subscription interrupted", "error", te.ev.Err)
		c.display.Notice("sync connection lost; retrying")
		return
	}
	id := c.identity.Load()
	if id == nil {
		return
	}

	payload, err := c.slot.Load()
	if err != nil {
		c.logger.Error("reading migration slot", "error", err)
		payload = nil
	}
	if payload != nil && payload.DateKey != c.dateKey {
		c.logger.Info("discarding stale migration payload", "staged_date", payload.DateKey, "date", c.dateKey)
		if err := c.slot.Clear(); err != nil {
			c.logger.Warn("clearing stale migration payload", "error", err)
		}
		payload = nil
	}
	if payload != nil {
		if err := c.migrator.Run(ctx, id.UserID, *payload, te.ev.Record); err != nil {
			c.logger.Error("migrating local totals", "error", err)
			c.display.Notice("could not merge local totals; will retry")
		}
		// The merged write comes straight back as the next delivery
		// and is adopted there.
		return
	}

	if te.ev.Record != nil {
		c.session.Adopt(*te.ev.Record)
	} else if err := c.cloud.MergePut(ctx, id.UserID, c.session.Snapshot()); err != nil {
		c.logger.Warn("writing first record of the day", "user_id", id.UserID, "error", err)
		c.display.Notice("sync write failed; will retry on the next change")
	}
	c.startTick(ctx)
	c.signalReady()
}

func (c *Coordinator) handleAction(ctx context.Context, req actionReq) {
	rec := c.session.SetState(req.next, c.clock.Now())
	if id := c.identity.Load(); id == nil {
		if err := c.local.Put(ctx, rec); err != nil {
			c.logger.Warn("local write failed; keeping totals in memory only", "date", rec.DateKey, "error", err)
		}
	} else if err := c.cloud.MergePut(ctx, id.UserID, rec); err != nil {
		c.logger.Warn("cloud write failed", "date", rec.DateKey, "error", err)
		c.display.Notice("sync write failed; totals kept locally until the next update")
	}
	c.display.Update(c.frame())
	req.reply <- rec
}

func (c *Coordinator) startTick(ctx context.Context) {
	if c.ticking {
		return
	}
	c.ticking = true
	tctx, cancel := context.WithCancel(ctx)
	c.stopTick = cancel
	epoch := c.epoch.Load()
	go func() {
		t := time.NewTicker(c.tickEvery)
		defer t.Stop()
		c.frameAt(epoch)
		for {
			select {
			case <-tctx.Done():
				return
			case <-t.C:
				c.frameAt(epoch)
			}
		}
	}()
}

// frameAt pushes a frame unless the tick raced an identity switch, in
// which case the old account's totals must not be painted.
func (c *Coordinator) frameAt(epoch uint64) {
	if epoch != c.epoch.Load() {
		return
	}
	c.display.Update(c.frame())
}

func (c *Coordinator) frame() DisplayUpdate {
	f, d, state := c.session.Displayed(c.clock.Now())
	u := DisplayUpdate{
		FocusedMs:     f,
		DistractedMs:  d,
		State:         state,
		FocusClock:    FormatClock(f),
		DistractClock: FormatClock(d),
		FocusPercent:  FormatFocusPercent(f, d),
	}
	if id := c.identity.Load(); id != nil {
		u.UserID = id.UserID
	}
	return u
}

func (c *Coordinator) detach() {
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			c.logger.Debug("closing subscription", "error", err)
		}
		c.sub = nil
	}
	if c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
	c.ticking = false
}

func (c *Coordinator) signalReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *Coordinator) shutdown() {
	c.detach()
	close(c.done)
}
