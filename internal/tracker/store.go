package tracker

import "context"

// RecordStore persists day records for the anonymous, device-local
// tier. Implementations must be safe for concurrent use.
type RecordStore interface {
	// Get returns the record for dateKey, or (nil, nil) when the day
	// has no record yet.
	Get(ctx context.Context, dateKey string) (*DayRecord, error)
	Put(ctx context.Context, rec DayRecord) error
	// Delete removes the record for dateKey. Deleting an absent day is
	// not an error.
	Delete(ctx context.Context, dateKey string) error
}

// SnapshotEvent is one delivery from a cloud subscription. Record is
// nil when the watched day has no record yet. Err is set for transport
// failures; the subscription keeps itself alive and retries after
// reporting one.
type SnapshotEvent struct {
	Record *DayRecord
	Err    error
}

// Subscription streams snapshot events for one identity and day.
// Events is closed once Close is called or the subscription's context
// ends.
type Subscription interface {
	Events() <-chan SnapshotEvent
	Close() error
}

// CloudStore persists day records for signed-in identities and streams
// changes back to every device on the account.
type CloudStore interface {
	// Get returns the record for the identity's day, or (nil, nil)
	// when the day has no record.
	Get(ctx context.Context, userID, dateKey string) (*DayRecord, error)
	// MergePut upserts totals and state for the record's day. The
	// server assigns the run-start timestamp; rec.StateSince is not
	// sent.
	MergePut(ctx context.Context, userID string, rec DayRecord) error
	Delete(ctx context.Context, userID, dateKey string) error
	Subscribe(ctx context.Context, userID, dateKey string) (Subscription, error)
}
