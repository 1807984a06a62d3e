package tracker

// MigrationPayload is the snapshot of anonymous local totals captured
// at sign-in, to be merged into the account exactly once.
type MigrationPayload struct {
	DateKey      string `json:"date_key"`
	FocusedMs    int64  `json:"focused_ms"`
	DistractedMs int64  `json:"distracted_ms"`
	State        State  `json:"state"`
}

// HandoffSlot holds at most one staged migration payload across
// process restarts. Stage overwrites any previous payload.
type HandoffSlot interface {
	Stage(p MigrationPayload) error
	// Load returns the staged payload, or (nil, nil) when the slot is
	// empty.
	Load() (*MigrationPayload, error)
	Clear() error
}
