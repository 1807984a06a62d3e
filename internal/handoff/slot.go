package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"focustrack/internal/tracker"
)

// FileSlot is a filesystem-backed implementation of the HandoffSlot
// interface. The payload lives in a single JSON file written atomically
// (temp file + rename), so a crash mid-stage never leaves a
// half-written payload for a later migration to consume.
type FileSlot struct {
	path string
	mu   sync.Mutex
}

// NewFileSlot creates a slot stored at path, creating parent
// directories as needed.
func NewFileSlot(path string) (*FileSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create handoff directory: %w", err)
	}
	return &FileSlot{path: path}, nil
}

// Compile-time check that FileSlot implements the HandoffSlot interface
var _ tracker.HandoffSlot = (*FileSlot)(nil)

func (s *FileSlot) Stage(p tracker.MigrationPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return s.writeFile(data)
}

func (s *FileSlot) Load() (*tracker.MigrationPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading staged payload: %w", err)
	}

	var p tracker.MigrationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding staged payload: %w", err)
	}
	if !p.State.Valid() {
		return nil, fmt.Errorf("staged payload has unknown state %q", p.State)
	}
	return &p, nil
}

func (s *FileSlot) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing staged payload: %w", err)
	}
	return nil
}

// writeFile writes data to the slot path using atomic write (temp file + rename).
func (s *FileSlot) writeFile(data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write payload: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
