package repository

import (
	"github.com/mentionwatch/mentionwatch/internal/modules/mention/domain"
)

// Repository defines the interface for mention history persistence
type Repository interface {
	SaveMention(mention *domain.Mention) error
	// GetRecent returns up to limit mentions, newest first.
	GetRecent(limit int) ([]*domain.Mention, error)
	Count() (int, error)
}
