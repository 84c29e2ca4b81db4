package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
)

// FileStorage implements nickname.Repository using a single JSON file
// holding an ordered list of strings, cached in-process.
type FileStorage struct {
	path  string
	mu    sync.RWMutex
	cache []string
}

// NewFileStorage creates a new file-based nickname repository
func NewFileStorage(basePath string) (Repository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	return &FileStorage{path: filepath.Join(basePath, "nicknames.json")}, nil
}

func (s *FileStorage) GetAll() ([]string, error) {
	s.mu.RLock()
	if s.cache != nil {
		out := make([]string, len(s.cache))
		copy(out, s.cache)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to read nicknames").Wrap(err)
	}

	var nicknames []string
	if err := json.Unmarshal(data, &nicknames); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to unmarshal nicknames").Wrap(err)
	}

	s.cache = nicknames
	out := make([]string, len(nicknames))
	copy(out, nicknames)
	return out, nil
}

func (s *FileStorage) SaveAll(nicknames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(nicknames, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal nicknames").Wrap(err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return oops.With("path", s.path, "context", "failed to write nicknames").Wrap(err)
	}

	cached := make([]string, len(nicknames))
	copy(cached, nicknames)
	s.cache = cached
	return nil
}

func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}
