package tracker

import "fmt"

// FormatClock renders a millisecond total as HH:MM:SS. Hours widen
// past two digits rather than wrap.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatFocusPercent renders focused time as a share of all tracked
// time with one decimal place. Zero tracked time reads as "0.0%"
// rather than dividing by zero.
func FormatFocusPercent(focusedMs, distractedMs int64) string {
	total := focusedMs + distractedMs
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(focusedMs)/float64(total)*100)
}
