package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
	"github.com/samber/oops"
)

// FileStorage implements credentials.Repository using a single JSON file
// with an in-process cache that is invalidated on every write.
type FileStorage struct {
	path  string
	mu    sync.RWMutex
	cache *domain.Credentials
}

// NewFileStorage creates a new file-based credentials repository
func NewFileStorage(basePath string) (Repository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	return &FileStorage{path: filepath.Join(basePath, "credentials.json")}, nil
}

func (s *FileStorage) Get() (*domain.Credentials, error) {
	s.mu.RLock()
	if s.cache != nil {
		creds := *s.cache
		s.mu.RUnlock()
		return &creds, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.Credentials{}, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to read credentials").Wrap(err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to unmarshal credentials").Wrap(err)
	}

	s.cache = &creds
	out := creds
	return &out, nil
}

func (s *FileStorage) Save(creds *domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal credentials").Wrap(err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return oops.With("path", s.path, "context", "failed to write credentials").Wrap(err)
	}

	cached := *creds
	s.cache = &cached
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
