package service

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	"github.com/mentionwatch/mentionwatch/internal/modules/mention/domain"
	"github.com/mentionwatch/mentionwatch/internal/modules/mention/repository"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const feedLimit = 50

// Service handles mention history and its RSS rendering
type Service struct {
	repo repository.Repository
}

// New creates a new mention service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Record appends a dispatched mention to the history log
func (s *Service) Record(mention *domain.Mention) error {
	return s.repo.SaveMention(mention)
}

// Recent returns up to limit mentions, newest first
func (s *Service) Recent(limit int) ([]*domain.Mention, error) {
	return s.repo.GetRecent(limit)
}

// Count returns the number of stored mentions
func (s *Service) Count() (int, error) {
	return s.repo.Count()
}

// GenerateFeed renders the latest mentions as an RSS feed
func (s *Service) GenerateFeed(baseURL string) (*feeds.Feed, error) {
	mentions, err := s.repo.GetRecent(feedLimit)
	if err != nil {
		return nil, oops.With("context", "failed to get recent mentions").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       "Mention notifications",
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/rss", baseURL)},
		Description: "Tracked-nickname mentions picked up from monitored Telegram chats",
		Created:     time.Now(),
	}

	feed.Items = lo.Map(mentions, func(m *domain.Mention, _ int) *feeds.Item {
		return s.mentionToFeedItem(m)
	})

	return feed, nil
}

func (s *Service) mentionToFeedItem(m *domain.Mention) *feeds.Item {
	title := fmt.Sprintf("@%s mentioned in %s", m.Nickname, m.ChatTitle)
	if m.Edited {
		title = "[edited] " + title
	}

	return &feeds.Item{
		Title:       title,
		Description: m.Text,
		Author:      &feeds.Author{Name: m.ChatHandle},
		Created:     m.Date,
		Id:          fmt.Sprintf("%d-%d-%s", m.ChatID, m.MessageID, m.Nickname),
	}
}
