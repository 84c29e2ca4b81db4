package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
	"github.com/mentionwatch/mentionwatch/internal/modules/credentials/repository"
	"github.com/radovskyb/watcher"
)

// Service handles credentials business logic
type Service struct {
	repo repository.Repository
}

// New creates a new credentials service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Get returns the stored credentials
func (s *Service) Get() (*domain.Credentials, error) {
	return s.repo.Get()
}

// Save overwrites the stored credentials
func (s *Service) Save(creds *domain.Credentials) error {
	return s.repo.Save(creds)
}

// Reset clears the credentials wholesale
func (s *Service) Reset() error {
	return s.repo.Save(&domain.Credentials{})
}

// SetSessionToken replaces the stored session token, keeping everything
// else intact. Used when the user client rotates its session.
func (s *Service) SetSessionToken(token string) error {
	creds, err := s.repo.Get()
	if err != nil {
		return err
	}
	creds.SessionToken = token
	return s.repo.Save(creds)
}

// IsComplete reports whether the delivery path is configured
func (s *Service) IsComplete() bool {
	creds, err := s.repo.Get()
	if err != nil {
		return false
	}
	return creds.IsComplete()
}

// ScannerReady reports whether the scanning path is configured
func (s *Service) ScannerReady() bool {
	creds, err := s.repo.Get()
	if err != nil {
		return false
	}
	return creds.ScannerReady()
}

// Watch invalidates the in-process cache when the backing file is edited
// outside the process, so readers never serve a stale document. Blocks
// until ctx is done.
func (s *Service) Watch(ctx context.Context) {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Remove)

	dir := filepath.Dir(s.repo.Path())
	if err := w.Add(dir); err != nil {
		slog.Error("Failed to watch credentials directory", "dir", dir, "error", err)
		return
	}

	go func() {
		for {
			select {
			case event := <-w.Event:
				if event.Path != s.repo.Path() {
					continue
				}
				slog.Info("Credentials file changed on disk, dropping cache", "path", event.Path)
				s.repo.Invalidate()
			case err := <-w.Error:
				slog.Error("Credentials watcher error", "error", err)
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
		slog.Error("Failed to start credentials watcher", "error", err)
	}
}
