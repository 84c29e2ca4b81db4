package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionDomain "github.com/mentionwatch/mentionwatch/internal/modules/mention/domain"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
)

// Sender is the single outbound operation the dispatcher needs from the
// bot client.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Service delivers mention notifications to the administrator's chat.
// Delivery is best-effort: a rate-limit signal is honored and retried
// exactly once, anything else is logged and dropped.
type Service struct {
	cfg    *config.Config
	creds  *credService.Service
	sender Sender
	sleep  func(time.Duration)
}

// New creates a new notification dispatcher
func New(cfg *config.Config, creds *credService.Service) *Service {
	return &Service{
		cfg:   cfg,
		creds: creds,
		sleep: time.Sleep,
	}
}

// SetSender binds the outbound bot client. Wired after the bot is
// constructed since the bot's handlers depend on this service in turn.
func (s *Service) SetSender(sender Sender) {
	s.sender = sender
}

// Dispatch formats and delivers a single mention notification
func (s *Service) Dispatch(ctx context.Context, mention *mentionDomain.Mention) error {
	creds, err := s.creds.Get()
	if err != nil {
		return err
	}
	if !creds.IsComplete() || s.sender == nil {
		return sharedErrors.ErrNotConfigured
	}

	text := Format(mention, s.cfg.DeepLinkRoot)
	return s.send(ctx, creds.AdminID, text)
}

// Alert delivers a free-form message to the administrator, best-effort
// with no retry. Used by the run loop's failure path.
func (s *Service) Alert(ctx context.Context, text string) {
	creds, err := s.creds.Get()
	if err != nil || !creds.IsComplete() || s.sender == nil {
		slog.Error("Cannot alert administrator, credentials unavailable", "error", err)
		return
	}

	if _, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: creds.AdminID,
		Text:   text,
	}); err != nil {
		slog.Error("Failed to alert administrator", "error", err)
	}
}

func (s *Service) send(ctx context.Context, adminID int64, text string) error {
	_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: adminID,
		Text:   text,
	})
	if err == nil {
		return nil
	}

	var tooMany *bot.TooManyRequestsError
	if !errors.As(err, &tooMany) {
		slog.Error("Notification dropped", "error", err)
		return err
	}

	wait := time.Duration(tooMany.RetryAfter) * time.Second
	slog.Warn("Rate limited while sending notification, retrying once", "retry_after", wait)
	s.sleep(wait)

	if _, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: adminID,
		Text:   text,
	}); err != nil {
		slog.Error("Notification dropped after retry", "error", err)
		return err
	}

	return nil
}

// Format builds the human-readable notification text for a mention.
func Format(m *mentionDomain.Mention, deepLinkRoot string) string {
	prefix := ""
	if m.Edited {
		prefix = "[edited] "
	}

	handle := m.ChatHandle
	if handle != "" {
		handle = "@" + strings.TrimPrefix(handle, "@")
	} else {
		handle = strconv.FormatInt(m.ChatID, 10)
	}

	return fmt.Sprintf("%sMention of %s in '%s' (%s):\n%s\nLink: %s\nTime: %s",
		prefix, m.Nickname, m.ChatTitle, handle, m.Text,
		DeepLink(deepLinkRoot, m.ChatID, m.MessageID),
		m.Date.Format("2006-01-02 15:04:05 MST"))
}

// DeepLink builds a link back to the original message. Bot-API-style chat
// ids carry a -100 broadcast prefix that t.me/c links omit.
func DeepLink(root string, chatID, messageID int64) string {
	id := strings.TrimPrefix(strconv.FormatInt(chatID, 10), "-100")
	return fmt.Sprintf("%s/%s/%d", root, id, messageID)
}
