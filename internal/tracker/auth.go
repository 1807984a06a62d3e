package tracker

import "context"

// Identity is a signed-in account as the tracking layer sees it. A nil
// *Identity means anonymous.
type Identity struct {
	UserID string
}

// Authenticator reports who is signed in and when that changes.
type Authenticator interface {
	// Resume loads any sign-in stored from a previous run.
	Resume(ctx context.Context) (*Identity, error)
	Current() *Identity
	// Changes delivers the new identity after every sign-in or
	// sign-out, including ones made by another process on the same
	// machine.
	Changes() <-chan *Identity
}
