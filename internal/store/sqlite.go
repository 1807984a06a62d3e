package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focustrack/internal/database"
	"focustrack/internal/store/migrations"
	"focustrack/internal/tracker"
)

// SQLiteStore implements tracker.RecordStore on a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ tracker.RecordStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path, creating it if needed, and
// brings the schema up to date.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := database.OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating local store: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for schema setup and for closing db.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(ctx context.Context, dateKey string) (*tracker.DayRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date_key, focused_ms, distracted_ms, state, state_since
		FROM day_records
		WHERE date_key = ?`, dateKey)

	var (
		rec   tracker.DayRecord
		state string
		since sql.NullString
	)
	if err := row.Scan(&rec.DateKey, &rec.FocusedMs, &rec.DistractedMs, &state, &since); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading day record: %w", err)
	}
	rec.State = tracker.State(state)
	if since.Valid {
		t, err := time.Parse(time.RFC3339Nano, since.String)
		if err != nil {
			return nil, fmt.Errorf("parsing run start for %s: %w", dateKey, err)
		}
		rec.StateSince = &t
	}
	return &rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec tracker.DayRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to store record for %s: %w", rec.DateKey, err)
	}
	var since any
	if rec.StateSince != nil {
		since = rec.StateSince.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_records (date_key, focused_ms, distracted_ms, state, state_since)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date_key) DO UPDATE SET
			focused_ms    = excluded.focused_ms,
			distracted_ms = excluded.distracted_ms,
			state         = excluded.state,
			state_since   = excluded.state_since,
			updated_at    = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		rec.DateKey, rec.FocusedMs, rec.DistractedMs, string(rec.State), since)
	if err != nil {
		return fmt.Errorf("writing day record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, dateKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM day_records WHERE date_key = ?`, dateKey); err != nil {
		return fmt.Errorf("deleting day record: %w", err)
	}
	return nil
}
