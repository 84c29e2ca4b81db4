package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mentionwatch/mentionwatch/internal/modules/mention/domain"
	"github.com/samber/oops"
)

// FileStorage implements mention.Repository using file system
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based mention repository
func NewFileStorage(basePath string) (Repository, error) {
	mentionPath := filepath.Join(basePath, "mentions")
	if err := os.MkdirAll(mentionPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create mentions directory").Wrap(err)
	}

	return &FileStorage{basePath: mentionPath}, nil
}

func (s *FileStorage) SaveMention(mention *domain.Mention) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Nanosecond filenames keep lexicographic order equal to arrival order.
	path := filepath.Join(s.basePath, fmt.Sprintf("%d.json", time.Now().UnixNano()))
	data, err := json.MarshalIndent(mention, "", "  ")
	if err != nil {
		return oops.With("chat_id", mention.ChatID, "message_id", mention.MessageID, "context", "failed to marshal mention").Wrap(err)
	}

	return os.WriteFile(path, data, 0644)
}

func (s *FileStorage) GetRecent(limit int) ([]*domain.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Mention{}, nil
		}
		return nil, oops.With("directory", s.basePath, "context", "failed to read mentions directory").Wrap(err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() > entries[j].Name()
	})

	var mentions []*domain.Mention
	for _, entry := range entries {
		if len(mentions) >= limit {
			break
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var mention domain.Mention
		if err := json.Unmarshal(data, &mention); err != nil {
			continue
		}

		mentions = append(mentions, &mention)
	}

	return mentions, nil
}

func (s *FileStorage) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, oops.With("directory", s.basePath, "context", "failed to read mentions directory").Wrap(err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			count++
		}
	}

	return count, nil
}
