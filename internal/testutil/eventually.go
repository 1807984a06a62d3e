package testutil

import (
	"testing"
	"time"
)

// Eventually polls cond every few milliseconds until it returns true,
// failing the test if the deadline passes first. Use it to wait on
// work that happens on another goroutine.
func Eventually(t *testing.T, deadline time.Duration, what string, cond func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
