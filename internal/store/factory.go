package store

import (
	"fmt"
	"os"
	"path/filepath"

	"focustrack/internal/config"
	"focustrack/internal/tracker"
)

// NewRecordStore creates a RecordStore implementation based on the store config type.
func NewRecordStore(cfg config.StoreConfig) (tracker.RecordStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "days.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
