package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"focustrack/internal/database"
	"focustrack/internal/server/migrations"
	"focustrack/internal/tracker"
)

// newTestStore creates a store over an in-memory database with schema
// applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	s := NewStoreFromDB(db)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestStore_GetRecord(t *testing.T) {
	t.Run("returns nil when absent", func(t *testing.T) {
		s := newTestStore(t)

		rec, err := s.GetRecord(context.Background(), "u1", "2024-01-15")
		if err != nil {
			t.Fatalf("GetRecord() error = %v", err)
		}
		if rec != nil {
			t.Errorf("GetRecord() = %v, want nil", rec)
		}
	})

	t.Run("scoped by user", func(t *testing.T) {
		s := newTestStore(t)

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1000, 0, tracker.StateNone); err != nil {
			t.Fatalf("MergeUpsert() error = %v", err)
		}

		rec, err := s.GetRecord(context.Background(), "u2", "2024-01-15")
		if err != nil {
			t.Fatalf("GetRecord() error = %v", err)
		}
		if rec != nil {
			t.Errorf("GetRecord() = %v for another user, want nil", rec)
		}
	})
}

func TestStore_MergeUpsert(t *testing.T) {
	t.Run("creates the day with a fresh run start", func(t *testing.T) {
		s := newTestStore(t)
		now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		s.nowFn = func() time.Time { return now }

		rec, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1000, 500, tracker.StateFocus)
		if err != nil {
			t.Fatalf("MergeUpsert() error = %v", err)
		}
		if rec.FocusedMs != 1000 || rec.DistractedMs != 500 {
			t.Errorf("totals = (%d, %d), want (1000, 500)", rec.FocusedMs, rec.DistractedMs)
		}
		if rec.State != tracker.StateFocus {
			t.Errorf("State = %q, want %q", rec.State, tracker.StateFocus)
		}
		if rec.StateSince == nil || !rec.StateSince.Equal(now) {
			t.Errorf("StateSince = %v, want %v", rec.StateSince, now)
		}
	})

	t.Run("takes the submitted totals and adopts the submitted state", func(t *testing.T) {
		s := newTestStore(t)

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1000, 500, tracker.StateFocus); err != nil {
			t.Fatalf("first MergeUpsert() error = %v", err)
		}
		rec, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1200, 800, tracker.StateDistract)
		if err != nil {
			t.Fatalf("second MergeUpsert() error = %v", err)
		}

		if rec.FocusedMs != 1200 || rec.DistractedMs != 800 {
			t.Errorf("totals = (%d, %d), want (1200, 800)", rec.FocusedMs, rec.DistractedMs)
		}
		if rec.State != tracker.StateDistract {
			t.Errorf("State = %q, want %q", rec.State, tracker.StateDistract)
		}
	})

	t.Run("does not add cumulative totals onto the stored day", func(t *testing.T) {
		// Clients resubmit their whole day total after every fold; a
		// write of 150000 over a stored 60000 must read back as 150000.
		s := newTestStore(t)

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 60000, 0, tracker.StateFocus); err != nil {
			t.Fatalf("first MergeUpsert() error = %v", err)
		}
		rec, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 150000, 0, tracker.StateFocus)
		if err != nil {
			t.Fatalf("second MergeUpsert() error = %v", err)
		}

		if rec.FocusedMs != 150000 {
			t.Errorf("FocusedMs = %d, want 150000", rec.FocusedMs)
		}
	})

	t.Run("restamps the run start on every write", func(t *testing.T) {
		s := newTestStore(t)
		now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		s.nowFn = func() time.Time { return now }

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 0, 0, tracker.StateFocus); err != nil {
			t.Fatalf("first MergeUpsert() error = %v", err)
		}

		now = now.Add(time.Hour)
		rec, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 0, 0, tracker.StateFocus)
		if err != nil {
			t.Fatalf("second MergeUpsert() error = %v", err)
		}
		if rec.StateSince == nil || !rec.StateSince.Equal(now) {
			t.Errorf("StateSince = %v, want restamped to %v", rec.StateSince, now)
		}
	})

	t.Run("stopped state stores no run start", func(t *testing.T) {
		s := newTestStore(t)

		rec, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1000, 0, tracker.StateNone)
		if err != nil {
			t.Fatalf("MergeUpsert() error = %v", err)
		}
		if rec.StateSince != nil {
			t.Errorf("StateSince = %v, want nil for a stopped record", rec.StateSince)
		}
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		s := newTestStore(t)

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 0, 0, tracker.State("paused")); err == nil {
			t.Error("MergeUpsert() expected error for unknown state, got nil")
		}
	})

	t.Run("rejects negative totals", func(t *testing.T) {
		s := newTestStore(t)

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", -1, 0, tracker.StateNone); err == nil {
			t.Error("MergeUpsert() expected error for negative totals, got nil")
		}
	})
}

func TestStore_DeleteRecord(t *testing.T) {
	t.Run("removes the day", func(t *testing.T) {
		s := newTestStore(t)

		if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1000, 0, tracker.StateNone); err != nil {
			t.Fatalf("MergeUpsert() error = %v", err)
		}
		if err := s.DeleteRecord(context.Background(), "u1", "2024-01-15"); err != nil {
			t.Fatalf("DeleteRecord() error = %v", err)
		}

		rec, err := s.GetRecord(context.Background(), "u1", "2024-01-15")
		if err != nil {
			t.Fatalf("GetRecord() error = %v", err)
		}
		if rec != nil {
			t.Errorf("GetRecord() = %v after delete, want nil", rec)
		}
	})

	t.Run("absent record is not an error", func(t *testing.T) {
		s := newTestStore(t)

		if err := s.DeleteRecord(context.Background(), "u1", "2024-01-15"); err != nil {
			t.Errorf("DeleteRecord() error = %v, want nil", err)
		}
	})
}

func TestStore_Snapshot(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.MergeUpsert(context.Background(), "u1", "2024-01-15", 1234, 0, tracker.StateNone); err != nil {
		t.Fatalf("MergeUpsert() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := s.Snapshot(context.Background(), path); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	// The snapshot must be an independent, readable database.
	db, err := database.OpenConnection(path)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer db.Close()

	var focused int64
	err = db.QueryRow("SELECT focused_ms FROM user_day_records WHERE user_id = 'u1' AND date_key = '2024-01-15'").Scan(&focused)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if focused != 1234 {
		t.Errorf("focused_ms = %d in snapshot, want 1234", focused)
	}
}
