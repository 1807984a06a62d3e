package testutil

import (
	"context"
	"sync"

	"focustrack/internal/tracker"
)

// StubAuth is an Authenticator tests drive by hand.
type StubAuth struct {
	mu        sync.Mutex
	cur       *tracker.Identity
	resumeErr error
	ch        chan *tracker.Identity
}

var _ tracker.Authenticator = (*StubAuth)(nil)

// NewStubAuth creates a StubAuth resuming as initial; nil means
// anonymous.
func NewStubAuth(initial *tracker.Identity) *StubAuth {
	return &StubAuth{cur: initial, ch: make(chan *tracker.Identity, 4)}
}

// SetResumeErr makes Resume fail with err.
func (a *StubAuth) SetResumeErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumeErr = err
}

func (a *StubAuth) Resume(context.Context) (*tracker.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resumeErr != nil {
		return nil, a.resumeErr
	}
	return a.cur, nil
}

func (a *StubAuth) Current() *tracker.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur
}

func (a *StubAuth) Changes() <-chan *tracker.Identity { return a.ch }

// SignIn switches to userID and announces the change.
func (a *StubAuth) SignIn(userID string) {
	id := &tracker.Identity{UserID: userID}
	a.mu.Lock()
	a.cur = id
	a.mu.Unlock()
	a.ch <- id
}

// SignOut switches to anonymous and announces the change.
func (a *StubAuth) SignOut() {
	a.mu.Lock()
	a.cur = nil
	a.mu.Unlock()
	a.ch <- nil
}
