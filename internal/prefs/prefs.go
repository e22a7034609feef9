// Package prefs persists the user's last chosen audio endpoints across
// process restarts.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// Store is a write-through key-value file. Every setter persists to disk
// before returning, so a crash after a successful Set can never lose the
// selection. Reads are best-effort: a missing file or key degrades to the
// zero value, never to an error.
type Store struct {
	mu       sync.Mutex
	filepath string
	data     prefsFile
}

type prefsFile struct {
	SelectedInputID      string `json:"selected_input_id,omitempty"`
	SelectedOutputID     string `json:"selected_output_id,omitempty"`
	SelectedDataSourceID *int   `json:"selected_data_source_id,omitempty"`
}

// NewStore creates a store backed by the platform data directory.
func NewStore() (*Store, error) {
	path, err := xdg.DataFile("audioroute/preferences.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get data file path: %w", err)
	}
	return NewStoreAt(path), nil
}

// NewStoreAt creates a store backed by an explicit file path.
func NewStoreAt(path string) *Store {
	s := &Store{filepath: path}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return
	}
	// A corrupt file is treated the same as a missing one.
	_ = json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.filepath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filepath, data, 0644)
}

// InputID returns the persisted input selection, or "" when none is stored.
func (s *Store) InputID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SelectedInputID
}

func (s *Store) SetInputID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SelectedInputID = id
	return s.save()
}

// OutputID returns the persisted output selection, or "" when none is stored.
func (s *Store) OutputID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SelectedOutputID
}

func (s *Store) SetOutputID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SelectedOutputID = id
	return s.save()
}

// DataSourceID returns the persisted data-source selection. The second
// return is false when none is stored.
func (s *Store) DataSourceID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.SelectedDataSourceID == nil {
		return 0, false
	}
	return *s.data.SelectedDataSourceID, true
}

func (s *Store) SetDataSourceID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SelectedDataSourceID = &id
	return s.save()
}
