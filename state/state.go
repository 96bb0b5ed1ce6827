// Package state persists small key/value pairs between CLI invocations,
// such as the next page cursor of each project.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/claudelogs/pkg/paths"
	"gopkg.in/yaml.v3"
)

// FileName is the state file inside paths.StateDir().
const FileName = "state.yml"

// State is the decoded state file.
type State map[string]interface{}

// Store reads and writes one YAML state file. Every call goes to disk.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Default returns the store in the claudelogs state directory.
func Default() *Store {
	return NewStore(filepath.Join(paths.StateDir(), FileName))
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the whole state. A missing file is an empty state.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st == nil {
		st = make(State)
	}
	return st, nil
}

func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// Write then rename so a concurrent reader never sees half a file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// GetString returns the string stored under key, or "" when the key is
// missing or holds another type.
func (s *Store) GetString(key string) (string, error) {
	st, err := s.Load()
	if err != nil {
		return "", err
	}
	str, _ := st[key].(string)
	return str, nil
}

// Set stores value under key.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	st[key] = value
	return s.save(st)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := st[key]; !ok {
		return nil
	}
	delete(st, key)
	return s.save(st)
}
