package tracker

// DisplayUpdate is one rendered frame of today's totals.
type DisplayUpdate struct {
	FocusedMs     int64
	DistractedMs  int64
	State         State
	UserID        string // empty when anonymous
	FocusClock    string // HH:MM:SS
	DistractClock string // HH:MM:SS
	FocusPercent  string // e.g. "66.7%"
}

// Display receives periodic total updates and transient notices.
// Implementations must not block the caller.
type Display interface {
	Update(u DisplayUpdate)
	Notice(msg string)
}

// NopDisplay discards all output. Use when no UI is attached.
type NopDisplay struct{}

func (NopDisplay) Update(DisplayUpdate) {}
func (NopDisplay) Notice(string)        {}
