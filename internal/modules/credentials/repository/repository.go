package repository

import (
	"github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
)

// Repository defines the interface for credentials persistence.
// This abstraction allows easy replacement of storage implementations.
type Repository interface {
	// Get returns the stored credentials. A missing file yields an empty
	// document, not an error.
	Get() (*domain.Credentials, error)
	// Save overwrites the stored credentials wholesale.
	Save(creds *domain.Credentials) error
	// Path returns the location of the backing file, for change watching.
	Path() string
	// Invalidate drops any in-process cache so the next Get re-reads disk.
	Invalidate()
}
