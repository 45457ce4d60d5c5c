// Package storage is the sole point of disk I/O: three JSON documents,
// each rewritten in full on every save. Writes go through a temp file and
// rename so concurrent readers never observe a partially written document.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alertd/alertd/internal/alert"
)

const (
	alertsFile   = "alerts.json"
	keysFile     = "processed_keys.json"
	gameDataFile = "gamedata.json"
)

type Store struct {
	dir string

	alertsMu sync.Mutex
	keysMu   sync.Mutex
	blobMu   sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// LoadAlerts returns the per-day alert document, or an empty mapping when
// the file does not exist yet.
func (s *Store) LoadAlerts() (alert.Store, error) {
	s.alertsMu.Lock()
	defer s.alertsMu.Unlock()
	out := alert.Store{}
	if err := s.loadJSON(alertsFile, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = alert.Store{}
	}
	return out, nil
}

func (s *Store) SaveAlerts(store alert.Store) error {
	s.alertsMu.Lock()
	defer s.alertsMu.Unlock()
	return s.saveJSON(alertsFile, store)
}

// LoadKeys returns the processed identity-key table.
func (s *Store) LoadKeys() (map[string]bool, error) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	out := map[string]bool{}
	if err := s.loadJSON(keysFile, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]bool{}
	}
	return out, nil
}

func (s *Store) SaveKeys(keys map[string]bool) error {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	return s.saveJSON(keysFile, keys)
}

// LoadGameData returns the opaque blob verbatim, "{}" when absent.
func (s *Store) LoadGameData() (json.RawMessage, error) {
	s.blobMu.Lock()
	defer s.blobMu.Unlock()
	b, err := os.ReadFile(filepath.Join(s.dir, gameDataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return json.RawMessage("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", gameDataFile, err)
	}
	return json.RawMessage(b), nil
}

func (s *Store) SaveGameData(blob json.RawMessage) error {
	s.blobMu.Lock()
	defer s.blobMu.Unlock()
	return s.writeAtomic(gameDataFile, blob)
}

func (s *Store) loadJSON(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) saveJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.writeAtomic(name, b)
}

// writeAtomic replaces the named document in one rename so a concurrent
// reader sees either the old or the new content, never a mix.
func (s *Store) writeAtomic(name string, b []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
