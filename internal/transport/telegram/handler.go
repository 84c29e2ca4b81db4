package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionService "github.com/mentionwatch/mentionwatch/internal/modules/mention/service"
	monitorService "github.com/mentionwatch/mentionwatch/internal/modules/monitor/service"
	nicknameService "github.com/mentionwatch/mentionwatch/internal/modules/nickname/service"
	setupService "github.com/mentionwatch/mentionwatch/internal/modules/setup/service"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
)

// Handler handles Telegram bot interactions
type Handler struct {
	cfg       *config.Config
	creds     *credService.Service
	nicknames *nicknameService.Service
	setup     *setupService.Service
	monitor   *monitorService.Service
	mentions  *mentionService.Service
}

// New creates a new Telegram handler
func New(cfg *config.Config, creds *credService.Service, nicknames *nicknameService.Service, setup *setupService.Service, monitor *monitorService.Service, mentions *mentionService.Service) *Handler {
	return &Handler{
		cfg:       cfg,
		creds:     creds,
		nicknames: nicknames,
		setup:     setup,
		monitor:   monitor,
		mentions:  mentions,
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/ping", bot.MatchTypeExact, h.handlePing)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/setup", bot.MatchTypeExact, h.handleSetup)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, h.handleCancel)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypeExact, h.handleReset)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/reconfigure", bot.MatchTypeExact, h.handleReconfigure)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/adduser", bot.MatchTypePrefix, h.handleAddUser)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/removeuser", bot.MatchTypePrefix, h.handleRemoveUser)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
}

// HandleUpdate processes updates that matched no registered command.
// Plain text from a user with an active setup conversation is fed into
// the conversation state machine.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	text := update.Message.Text
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	userID := update.Message.From.ID
	if !h.setup.Active(userID) {
		return
	}

	res := h.setup.Handle(ctx, userID, text)
	if !res.Handled {
		return
	}
	h.reply(ctx, b, update, res.Reply)

	if res.Completed {
		go h.monitor.Restart(ctx)
	}
}

func (h *Handler) checkAuthorization(userID int64) error {
	creds, err := h.creds.Get()
	if err != nil {
		return err
	}
	// Until an administrator is bound, anyone may run setup; the first
	// completed setup binds admin_id.
	if creds.AdminID != 0 && creds.AdminID != userID {
		return sharedErrors.ErrUnauthorized
	}
	return nil
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	configured := "not configured — run /setup to connect your account"
	creds, err := h.creds.Get()
	if err == nil && creds.ScannerReady() {
		configured = "configured"
	}

	text := fmt.Sprintf(`👋 Welcome to mentionwatch!

I watch the chats your account belongs to and notify you when a tracked
nickname is mentioned.

Current state: %s

Available commands:
/setup - Connect your Telegram account (interactive)
/cancel - Abort an in-progress setup
/reset - Clear stored credentials
/reconfigure - Reset and start setup again
/adduser <name> - Track a nickname
/removeuser <name> - Stop tracking a nickname
/status - Show configuration and tracked nicknames
/ping - Liveness check`, configured)

	h.reply(ctx, b, update, text)
}

func (h *Handler) handlePing(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.reply(ctx, b, update, "pong")
}

func (h *Handler) handleSetup(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	prompt, err := h.setup.Start(ctx, update.Message.From.ID)
	switch {
	case errors.Is(err, sharedErrors.ErrAlreadyConfigured):
		h.reply(ctx, b, update, "Already configured. Run /reset first if you want to start over.")
	case errors.Is(err, sharedErrors.ErrConversationActive):
		h.reply(ctx, b, update, "Setup is already in progress. Answer the last prompt, or /cancel to abort.")
	case err != nil:
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to start setup: %v", err))
	default:
		h.reply(ctx, b, update, prompt)
	}
}

func (h *Handler) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	if err := h.setup.Cancel(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "Nothing to cancel.")
		return
	}
	h.reply(ctx, b, update, "Setup cancelled.")
}

func (h *Handler) handleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	h.reset(update.Message.From.ID)
	h.reply(ctx, b, update, "Configuration cleared. Run /setup to connect an account.")
}

func (h *Handler) handleReconfigure(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	h.reset(update.Message.From.ID)

	prompt, err := h.setup.Start(ctx, update.Message.From.ID)
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to restart setup: %v", err))
		return
	}
	h.reply(ctx, b, update, "Configuration cleared.\n"+prompt)
}

func (h *Handler) reset(userID int64) {
	_ = h.setup.Cancel(userID)
	h.monitor.Stop()
	if err := h.creds.Reset(); err != nil {
		slog.Error("Failed to reset credentials", "error", err)
	}
}

func (h *Handler) handleAddUser(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	name := commandArg(update.Message.Text)
	if name == "" {
		h.reply(ctx, b, update, "Usage: /adduser <name>\nExample: /adduser @alice")
		return
	}

	err := h.nicknames.Add(name)
	switch {
	case errors.Is(err, sharedErrors.ErrAlreadyTracked):
		h.reply(ctx, b, update, fmt.Sprintf("%s is already tracked.", name))
	case err != nil:
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to add nickname: %v", err))
	default:
		h.reply(ctx, b, update, fmt.Sprintf("✅ Now tracking %s", name))
	}
}

func (h *Handler) handleRemoveUser(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	name := commandArg(update.Message.Text)
	if name == "" {
		h.reply(ctx, b, update, "Usage: /removeuser <name>")
		return
	}

	err := h.nicknames.Remove(name)
	switch {
	case errors.Is(err, sharedErrors.ErrNotTracked):
		h.reply(ctx, b, update, fmt.Sprintf("%s is not tracked.", name))
	case err != nil:
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to remove nickname: %v", err))
	default:
		h.reply(ctx, b, update, fmt.Sprintf("✅ Stopped tracking %s", name))
	}
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.checkAuthorization(update.Message.From.ID); err != nil {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	creds, err := h.creds.Get()
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to read configuration: %v", err))
		return
	}

	nicknames, err := h.nicknames.List()
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to list nicknames: %v", err))
		return
	}

	mentionCount, err := h.mentions.Count()
	if err != nil {
		mentionCount = 0
	}

	// Probe the bot's own membership in this chat as a liveness signal.
	role := "unknown"
	if me, err := b.GetMe(ctx); err == nil {
		member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{
			ChatID: update.Message.Chat.ID,
			UserID: me.ID,
		})
		if err == nil {
			role = memberRole(member)
		}
	}

	h.reply(ctx, b, update, buildStatus(creds.ScannerReady(), h.monitor.Running(), nicknames, mentionCount, role))
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		slog.Error("Failed to send reply", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

// Helper functions

// commandArg returns the first argument after the command word.
func commandArg(text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func buildStatus(configured, scanning bool, nicknames []string, mentionCount int, botRole string) string {
	var text strings.Builder
	text.WriteString("📊 Status:\n\n")

	if configured {
		text.WriteString("Configuration: complete\n")
	} else {
		text.WriteString("Configuration: incomplete — run /setup\n")
	}
	if scanning {
		text.WriteString("Scanner: running\n")
	} else {
		text.WriteString("Scanner: stopped\n")
	}
	text.WriteString(fmt.Sprintf("Bot role in this chat: %s\n", botRole))
	text.WriteString(fmt.Sprintf("Mentions delivered: %d\n", mentionCount))

	if len(nicknames) == 0 {
		text.WriteString("\nNo nicknames tracked yet. Use /adduser to add one.")
	} else {
		text.WriteString(fmt.Sprintf("\n📋 Tracked nicknames (%d):\n", len(nicknames)))
		for i, n := range nicknames {
			text.WriteString(fmt.Sprintf("%d. %s\n", i+1, n))
		}
	}

	return text.String()
}

func memberRole(member *models.ChatMember) string {
	switch {
	case member == nil:
		return "unknown"
	case member.Owner != nil:
		return "owner"
	case member.Administrator != nil:
		return "administrator"
	case member.Member != nil:
		return "member"
	case member.Restricted != nil:
		return "restricted"
	case member.Left != nil:
		return "left"
	case member.Banned != nil:
		return "banned"
	default:
		return "unknown"
	}
}
