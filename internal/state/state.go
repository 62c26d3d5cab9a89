// Package state persists the application state blob that the sheet editor
// saves and restores. The JSON is stored as-is and never interpreted.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("no saved state")

var (
	// ErrInvalidJSON is returned when the data to save is not a JSON document.
	ErrInvalidJSON = errors.New("state is not valid JSON")
	// ErrTooLarge is returned by Import when the input exceeds its limit.
	ErrTooLarge = errors.New("state too large")
)

// Store is a single JSON document kept in a file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored state. The file is written to a temporary file in
// the same directory and renamed into place.
func (s *Store) Save(data []byte) error {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return ErrInvalidJSON
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load returns the stored state or ErrNotFound.
func (s *Store) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return data, nil
}

// Export writes the stored state to w.
func (s *Store) Export(w io.Writer) error {
	data, err := s.Load()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export state: %w", err)
	}
	return nil
}

// Import reads a JSON document from r and saves it, at most limit bytes.
func (s *Store) Import(r io.Reader, limit int64) error {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}
	return s.Save(data)
}
