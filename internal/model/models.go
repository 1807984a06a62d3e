package model

import (
	"fmt"
	"time"

	"focustrack/internal/tracker"
)

// RecordPayload is the wire form of a day record, shared by the sync
// client and server so the two cannot drift.
type RecordPayload struct {
	DateKey      string  `json:"date_key"`
	FocusedMs    int64   `json:"focused_ms"`
	DistractedMs int64   `json:"distracted_ms"`
	State        string  `json:"state"`
	StateSince   *string `json:"state_since,omitempty"` // RFC 3339, server-assigned
}

// FromRecord converts a day record to its wire form.
func FromRecord(rec *tracker.DayRecord) *RecordPayload {
	p := &RecordPayload{
		DateKey:      rec.DateKey,
		FocusedMs:    rec.FocusedMs,
		DistractedMs: rec.DistractedMs,
		State:        string(rec.State),
	}
	if rec.StateSince != nil {
		since := rec.StateSince.UTC().Format(time.RFC3339Nano)
		p.StateSince = &since
	}
	return p
}

// ToRecord converts the wire form back to a day record, rejecting
// payloads that violate the record invariants.
func (p *RecordPayload) ToRecord() (*tracker.DayRecord, error) {
	rec := &tracker.DayRecord{
		DateKey:      p.DateKey,
		FocusedMs:    p.FocusedMs,
		DistractedMs: p.DistractedMs,
		State:        tracker.State(p.State),
	}
	if p.StateSince != nil {
		t, err := time.Parse(time.RFC3339Nano, *p.StateSince)
		if err != nil {
			return nil, fmt.Errorf("parsing state_since: %w", err)
		}
		rec.StateSince = &t
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record payload: %w", err)
	}
	return rec, nil
}

// PutPayload is the body of a merge write. The server assigns the
// run-start timestamp itself, so none is sent.
type PutPayload struct {
	FocusedMs    int64  `json:"focused_ms"`
	DistractedMs int64  `json:"distracted_ms"`
	State        string `json:"state"`
}

// WatchFrame is one server push on a watch stream. A null record means
// the day currently has no stored record.
type WatchFrame struct {
	Record *RecordPayload `json:"record"`
}
