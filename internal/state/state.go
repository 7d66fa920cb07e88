// Package state persists the relay watermark between runs.
//
// The watermark is the timestamp of the newest source message that has
// been fully delivered. It only advances after a whole batch is pushed,
// so a crash or partial failure re-delivers rather than drops messages.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const stateVersion = 1

type record struct {
	Version   int     `json:"version"`
	LatestTS  float64 `json:"latest_ts"`
	UpdatedAt string  `json:"updated_at"`
}

// Store reads and writes the watermark file.
type Store struct {
	path string
	log  *slog.Logger
}

// New returns a store backed by the JSON file at path.
func New(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the location of the watermark file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted watermark. A missing file means no prior
// run and yields 0. A corrupt file is treated the same so a damaged
// deployment can still relay; the next save rewrites it.
func (s *Store) Load() (float64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn("state file corrupt, starting from zero", "path", s.path, "error", err)
		return 0, nil
	}
	if rec.LatestTS < 0 {
		s.log.Warn("state file holds negative watermark, starting from zero", "path", s.path)
		return 0, nil
	}
	return rec.LatestTS, nil
}

// Save atomically replaces the watermark file. The watermark never moves
// backwards; saving a value below the current one is an error.
func (s *Store) Save(ts float64) error {
	current, err := s.Load()
	if err != nil {
		return err
	}
	if ts < current {
		return fmt.Errorf("refusing to move watermark backwards from %.6f to %.6f", current, ts)
	}

	rec := record{
		Version:   stateVersion,
		LatestTS:  ts,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file %s: %w", s.path, err)
	}
	return nil
}

// Reset deletes the watermark file. The next run starts from scratch,
// fetching only the most recent messages.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file %s: %w", s.path, err)
	}
	return nil
}
