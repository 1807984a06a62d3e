package tracker

import "testing"

func TestFormatClock(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{ms: 0, want: "00:00:00"},
		{ms: 999, want: "00:00:00"},
		{ms: 1000, want: "00:00:01"},
		{ms: 61000, want: "00:01:01"},
		{ms: 3661000, want: "01:01:01"},
		{ms: 100 * 3600 * 1000, want: "100:00:00"},
		{ms: -5, want: "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.ms); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatFocusPercent(t *testing.T) {
	tests := []struct {
		focusedMs    int64
		distractedMs int64
		want         string
	}{
		{focusedMs: 60000, distractedMs: 30000, want: "66.7%"},
		{focusedMs: 0, distractedMs: 0, want: "0.0%"},
		{focusedMs: 1000, distractedMs: 0, want: "100.0%"},
		{focusedMs: 0, distractedMs: 1000, want: "0.0%"},
		{focusedMs: 1000, distractedMs: 2000, want: "33.3%"},
	}

	for _, tt := range tests {
		if got := FormatFocusPercent(tt.focusedMs, tt.distractedMs); got != tt.want {
			t.Errorf("FormatFocusPercent(%d, %d) = %q, want %q",
				tt.focusedMs, tt.distractedMs, got, tt.want)
		}
	}
}
