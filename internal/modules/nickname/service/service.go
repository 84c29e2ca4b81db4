package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mentionwatch/mentionwatch/internal/modules/nickname/domain"
	"github.com/mentionwatch/mentionwatch/internal/modules/nickname/repository"
	"github.com/mentionwatch/mentionwatch/internal/shared/errors"
	"github.com/radovskyb/watcher"
	"github.com/samber/lo"
)

// Service handles tracked-nickname business logic and mention matching
type Service struct {
	repo    repository.Repository
	matcher *domain.Matcher
}

// New creates a new nickname service
func New(repo repository.Repository) *Service {
	return &Service{
		repo:    repo,
		matcher: domain.NewMatcher(),
	}
}

// List returns the tracked nicknames in insertion order
func (s *Service) List() ([]string, error) {
	return s.repo.GetAll()
}

// Add appends a nickname to the tracked list. Adding a name that is
// already present (by exact string) returns ErrAlreadyTracked and leaves
// the list unchanged.
func (s *Service) Add(name string) error {
	nicknames, err := s.repo.GetAll()
	if err != nil {
		return err
	}

	if lo.Contains(nicknames, name) {
		return errors.ErrAlreadyTracked
	}

	return s.repo.SaveAll(append(nicknames, name))
}

// Remove deletes a nickname from the tracked list. Removing an absent
// name returns ErrNotTracked and leaves the list unchanged.
func (s *Service) Remove(name string) error {
	nicknames, err := s.repo.GetAll()
	if err != nil {
		return err
	}

	filtered := lo.Filter(nicknames, func(n string, _ int) bool {
		return n != name
	})
	if len(filtered) == len(nicknames) {
		return errors.ErrNotTracked
	}

	return s.repo.SaveAll(filtered)
}

// Matches reports whether a single nickname is mentioned in text
func (s *Service) Matches(text, nickname string) bool {
	return s.matcher.Matches(text, nickname)
}

// MatchAll returns every tracked nickname mentioned in text, in tracked
// order. Each hit produces its own notification downstream.
func (s *Service) MatchAll(text string) ([]string, error) {
	nicknames, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	return lo.Filter(nicknames, func(n string, _ int) bool {
		return s.matcher.Matches(text, n)
	}), nil
}

// Watch invalidates the in-process cache when the backing file is edited
// outside the process. Blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Remove)

	dir := filepath.Dir(s.repo.Path())
	if err := w.Add(dir); err != nil {
		slog.Error("Failed to watch nicknames directory", "dir", dir, "error", err)
		return
	}

	go func() {
		for {
			select {
			case event := <-w.Event:
				if event.Path != s.repo.Path() {
					continue
				}
				slog.Info("Nicknames file changed on disk, dropping cache", "path", event.Path)
				s.repo.Invalidate()
			case err := <-w.Error:
				slog.Error("Nicknames watcher error", "error", err)
			case <-w.Closed:
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		w.Close()
	}()

	if err := w.Start(time.Second); err != nil {
		slog.Error("Failed to start nicknames watcher", "error", err)
	}
}
