package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionDomain "github.com/mentionwatch/mentionwatch/internal/modules/mention/domain"
	mentionService "github.com/mentionwatch/mentionwatch/internal/modules/mention/service"
	nicknameService "github.com/mentionwatch/mentionwatch/internal/modules/nickname/service"
	notificationService "github.com/mentionwatch/mentionwatch/internal/modules/notification/service"
)

// IncomingMessage is one new or edited message observed by the
// user-account client, already flattened to Bot-API-style identifiers.
type IncomingMessage struct {
	ChatID     int64
	ChatTitle  string
	ChatHandle string
	MessageID  int64
	Text       string
	Edited     bool
	Outgoing   bool
	Date       time.Time
}

// Sink receives observed messages from a Runner.
type Sink interface {
	HandleIncoming(ctx context.Context, msg IncomingMessage)
}

// Runner drives the user-account event stream and blocks until ctx is
// cancelled or the stream fails.
type Runner interface {
	Run(ctx context.Context, sink Sink) error
}

// Service owns the scanning lifecycle: it is inert until the credentials
// store holds an authenticated session, and routes every observed message
// through the nickname matcher into the notification dispatcher.
type Service struct {
	creds     *credService.Service
	nicknames *nicknameService.Service
	notifier  *notificationService.Service
	mentions  *mentionService.Service
	runner    Runner

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a new monitor service
func New(creds *credService.Service, nicknames *nicknameService.Service, notifier *notificationService.Service, mentions *mentionService.Service, runner Runner) *Service {
	return &Service{
		creds:     creds,
		nicknames: nicknames,
		notifier:  notifier,
		mentions:  mentions,
		runner:    runner,
	}
}

// Start launches the scanning path. A no-op when the credentials store
// is not scanner-ready or a run is already in flight.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	if !s.creds.ScannerReady() {
		slog.Info("Monitoring is inert, run /setup to configure the user account")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(runCtx)
	slog.Info("Monitoring started")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	err := s.runner.Run(ctx, s)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	slog.Error("Monitoring stopped unexpectedly", "error", err)
	// Best-effort alert, the bot channel may still be alive.
	s.notifier.Alert(context.Background(), "Mention monitoring stopped: "+err.Error()+"\nRestart the service or run /setup again.")
}

// Stop cancels the scanning path and waits for it to wind down
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done, running := s.cancel, s.done, s.running
	s.mu.Unlock()

	if !running || cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("Monitoring stopped")
}

// Restart stops any in-flight run and starts over with the current
// credentials. Called after setup completes or the store is reset.
func (s *Service) Restart(ctx context.Context) {
	s.Stop()
	s.Start(ctx)
}

// Running reports whether the scanning path is active
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// HandleIncoming scans one observed message and dispatches a notification
// per matched nickname.
func (s *Service) HandleIncoming(ctx context.Context, msg IncomingMessage) {
	if msg.Outgoing || msg.Text == "" {
		return
	}

	matched, err := s.nicknames.MatchAll(msg.Text)
	if err != nil {
		slog.Error("Failed to match nicknames", "error", err)
		return
	}

	for _, nickname := range matched {
		mention := &mentionDomain.Mention{
			Nickname:   nickname,
			ChatID:     msg.ChatID,
			ChatTitle:  msg.ChatTitle,
			ChatHandle: msg.ChatHandle,
			MessageID:  msg.MessageID,
			Text:       msg.Text,
			Edited:     msg.Edited,
			Date:       msg.Date,
		}

		if err := s.notifier.Dispatch(ctx, mention); err != nil {
			continue
		}

		if err := s.mentions.Record(mention); err != nil {
			slog.Error("Failed to record mention", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		}
	}
}
