package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/anandsharma/kite-bridge/internal/modules/portfolio"
)

// ErrAbsent means no usable snapshot exists: the file is missing or its
// content does not parse. Corruption is "no cache", never a fatal fault.
var ErrAbsent = errors.New("no snapshot available")

// Store persists a single portfolio snapshot as one JSON file. A save
// fully replaces the previous record; there is no history.
type Store struct {
	path string
	log  zerolog.Logger
}

// New creates a snapshot store at the given file path
func New(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "snapshot_store").Logger(),
	}
}

// Save serializes the snapshot and replaces the stored record. The write
// goes to a temp file in the same directory followed by a rename, so a
// concurrent Load never observes a half-written file.
func (s *Store) Save(snap *portfolio.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.log.Info().Str("path", s.path).Int("bytes", len(data)).Msg("Snapshot written")
	return nil
}

// Load reads the stored snapshot. Missing or unparsable content yields
// ErrAbsent.
func (s *Store) Load() (*portfolio.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("Snapshot unreadable")
		}
		return nil, ErrAbsent
	}

	var snap portfolio.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Snapshot corrupt, treating as absent")
		return nil, ErrAbsent
	}

	return &snap, nil
}
