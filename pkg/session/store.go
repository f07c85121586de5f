package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const archiveIndexFile = "index.json"

// Store persists the session record as a single JSON document and
// accumulates per-venue snapshots under an archive directory.
type Store struct {
	path        string
	archiveDir  string
	archiveKeep int // 0 keeps everything
}

func NewStore(path, archiveDir string, archiveKeep int) *Store {
	return &Store{
		path:        path,
		archiveDir:  archiveDir,
		archiveKeep: archiveKeep,
	}
}

// Load reads the persisted document and merges it field by field onto
// a freshly constructed default state: missing fields keep their
// defaults, unknown keys are ignored. A missing file yields a fresh
// state, not an error.
func (s *Store) Load() (*State, error) {
	st := NewState()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, errors.Wrap(err, "reading session state")
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, errors.Wrap(err, "parsing session state")
	}
	st.normalize()
	return st, nil
}

// Save writes the state document. Called after every tick that changed
// something observable.
func (s *Store) Save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session state")
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.Wrap(err, "writing session state")
	}
	return nil
}

// Archive writes a snapshot keyed by timestamp and track directory and
// refreshes the archive index with the most recent paths.
func (s *Store) Archive(st *State, now time.Time) error {
	if err := os.MkdirAll(s.archiveDir, 0755); err != nil {
		return errors.Wrap(err, "creating archive dir")
	}
	track := st.Venue.TrackDir
	if track == "" {
		track = "unknown"
	}
	name := fmt.Sprintf("%d-%s.json", now.Unix(), track)
	path := filepath.Join(s.archiveDir, name)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding archive snapshot")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "writing archive snapshot")
	}

	if err := s.updateIndex(name); err != nil {
		// the snapshot itself made it to disk, index is best effort
		log.Printf("Error updating archive index: %s", err.Error())
	}
	return nil
}

func (s *Store) updateIndex(newest string) error {
	indexPath := filepath.Join(s.archiveDir, archiveIndexFile)

	entries := []string{}
	if data, err := os.ReadFile(indexPath); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			entries = []string{}
		}
	}

	entries = append([]string{newest}, entries...)
	if s.archiveKeep > 0 && len(entries) > s.archiveKeep {
		for _, stale := range entries[s.archiveKeep:] {
			os.Remove(filepath.Join(s.archiveDir, stale))
		}
		entries = entries[:s.archiveKeep]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(indexPath, data, 0644)
}
