package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"focustrack/internal/database"
	"focustrack/internal/server/migrations"
	"focustrack/internal/tracker"
)

// Store persists per-user day records in a shared sqlite database.
//
// Writes go through MergeUpsert. Clients submit their full cumulative
// day totals (having folded their own open run first), so the store
// takes the submitted fields as-is rather than summing them into what
// is already there; every accepted write begins a new run, and the
// store stamps state_since itself, ignoring any run start the client
// may claim.
type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

// OpenStore opens (creating if needed) the server database under dataDir
// and brings the schema up to date.
func OpenStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := database.OpenConnection(filepath.Join(dataDir, "records.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open server database: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate server database: %w", err)
	}
	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an already opened and migrated database handle.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db, nowFn: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetRecord returns the stored record for a user and day, or (nil, nil)
// when no record exists.
func (s *Store) GetRecord(ctx context.Context, userID, dateKey string) (*tracker.DayRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT focused_ms, distracted_ms, state, state_since
		 FROM user_day_records WHERE user_id = ? AND date_key = ?`,
		userID, dateKey)

	rec := tracker.DayRecord{DateKey: dateKey}
	var state string
	var since sql.NullString
	err := row.Scan(&rec.FocusedMs, &rec.DistractedMs, &state, &since)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	rec.State = tracker.State(state)
	if since.Valid {
		t, perr := time.Parse(time.RFC3339Nano, since.String)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse state_since: %w", perr)
		}
		rec.StateSince = &t
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("stored record is invalid: %w", err)
	}
	return &rec, nil
}

// MergeUpsert writes the submitted cumulative totals over the stored
// record for the user and day, adopts the submitted state, and stamps
// a fresh run start. It returns the record as stored after the write.
func (s *Store) MergeUpsert(ctx context.Context, userID, dateKey string, focusedMs, distractedMs int64, state tracker.State) (*tracker.DayRecord, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("invalid state %q", state)
	}
	if focusedMs < 0 || distractedMs < 0 {
		return nil, fmt.Errorf("negative totals are not allowed")
	}

	now := s.nowFn().UTC()
	var since sql.NullString
	if state != tracker.StateNone {
		since = sql.NullString{String: now.Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_day_records
		   (user_id, date_key, focused_ms, distracted_ms, state, state_since, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, date_key) DO UPDATE SET
		   focused_ms = excluded.focused_ms,
		   distracted_ms = excluded.distracted_ms,
		   state = excluded.state,
		   state_since = excluded.state_since,
		   updated_at = excluded.updated_at`,
		userID, dateKey, focusedMs, distractedMs, string(state), since,
		now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to write record: %w", err)
	}

	return s.GetRecord(ctx, userID, dateKey)
}

// DeleteRecord removes the stored record. Deleting an absent record is
// not an error.
func (s *Store) DeleteRecord(ctx context.Context, userID, dateKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_day_records WHERE user_id = ? AND date_key = ?`,
		userID, dateKey)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database to path.
func (s *Store) Snapshot(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}
	return nil
}
