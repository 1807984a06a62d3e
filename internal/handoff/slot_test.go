package handoff

import (
	"os"
	"path/filepath"
	"testing"

	"focustrack/internal/tracker"
)

func newTestSlot(t *testing.T) *FileSlot {
	t.Helper()

	s, err := NewFileSlot(filepath.Join(t.TempDir(), "handoff.json"))
	if err != nil {
		t.Fatalf("NewFileSlot() error = %v", err)
	}
	return s
}

func TestFileSlot_EmptyLoad(t *testing.T) {
	s := newTestSlot(t)

	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p != nil {
		t.Errorf("Load() = %v, want nil for an empty slot", p)
	}
}

func TestFileSlot_StageAndLoad(t *testing.T) {
	s := newTestSlot(t)

	want := tracker.MigrationPayload{
		DateKey:      "2024-01-15",
		FocusedMs:    50,
		DistractedMs: 10,
		State:        tracker.StateFocus,
	}
	if err := s.Stage(want); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil, want payload")
	}
	if *got != want {
		t.Errorf("Load() = %+v, want %+v", *got, want)
	}
}

func TestFileSlot_StageOverwrites(t *testing.T) {
	s := newTestSlot(t)

	first := tracker.MigrationPayload{DateKey: "2024-01-14", FocusedMs: 100, State: tracker.StateNone}
	if err := s.Stage(first); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	second := tracker.MigrationPayload{DateKey: "2024-01-15", FocusedMs: 200, State: tracker.StateNone}
	if err := s.Stage(second); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil || got.DateKey != "2024-01-15" || got.FocusedMs != 200 {
		t.Errorf("Load() = %+v, want the second payload", got)
	}
}

func TestFileSlot_Clear(t *testing.T) {
	s := newTestSlot(t)

	p := tracker.MigrationPayload{DateKey: "2024-01-15", State: tracker.StateNone}
	if err := s.Stage(p); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %v after clear, want nil", got)
	}

	// Clearing an empty slot is not an error
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error = %v, want nil", err)
	}
}

func TestFileSlot_RejectsUnknownState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handoff.json")
	if err := os.WriteFile(path, []byte(`{"date_key":"2024-01-15","state":"paused"}`), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := NewFileSlot(path)
	if err != nil {
		t.Fatalf("NewFileSlot() error = %v", err)
	}
	if _, err := s.Load(); err == nil {
		t.Error("Load() expected error for an unknown state, got nil")
	}
}

func TestFileSlot_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSlot(filepath.Join(dir, "handoff.json"))
	if err != nil {
		t.Fatalf("NewFileSlot() error = %v", err)
	}

	p := tracker.MigrationPayload{DateKey: "2024-01-15", State: tracker.StateNone}
	if err := s.Stage(p); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if e.Name() != "handoff.json" {
			t.Errorf("unexpected file %q left behind", e.Name())
		}
	}
}
