package rate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"hostprobe-agent/internal/model"
)

// Store persists the counter/time pair between invocations. Load reports
// ok=false when no prior state exists and an error when state exists but
// cannot be decoded.
type Store interface {
	Load() (model.RateState, bool, error)
	Save(model.RateState) error
}

// FileStore keeps the state as a small JSON file, rewritten in full on every
// save. There is no locking: concurrent invocations racing on the
// read-modify-write cycle can lose an update and skew one run's rate. That is
// an accepted limitation of the deployment model (cron-style, one at a time).
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (model.RateState, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.RateState{}, false, nil
	}
	if err != nil {
		return model.RateState{}, false, fmt.Errorf("read rate state %s: %w", s.path, err)
	}
	var st model.RateState
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.RateState{}, false, fmt.Errorf("decode rate state %s: %w", s.path, err)
	}
	return st, true, nil
}

func (s *FileStore) Save(st model.RateState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode rate state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write rate state %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore is the in-process Store used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	state   model.RateState
	hasData bool

	LoadErr error
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (model.RateState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return model.RateState{}, false, s.LoadErr
	}
	return s.state, s.hasData, nil
}

func (s *MemoryStore) Save(st model.RateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.state = st
	s.hasData = true
	return nil
}

// State returns the stored pair, for assertions.
func (s *MemoryStore) State() (model.RateState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.hasData
}
