package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	credDomain "github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	"github.com/mentionwatch/mentionwatch/internal/modules/setup/domain"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
)

const (
	promptAPIID    = "Enter your API id (a number from my.telegram.org):"
	promptAPIHash  = "Enter your API hash:"
	promptPhone    = "Enter the account's phone number in international format:"
	promptPassword = "Enter the account's two-factor password, or 'none' if it has none:"
)

// Result is the outcome of feeding one administrator message into the
// conversation.
type Result struct {
	Reply string
	// Handled is false when the user has no active conversation and the
	// message should be treated as ordinary text.
	Handled bool
	// Completed is true once credentials have been persisted and the
	// conversation is over.
	Completed bool
}

// Service runs the multi-step setup conversation. Each administrator has
// at most one session, kept in an explicit table and torn down on
// completion, cancellation, reset and shutdown.
type Service struct {
	cfg    *config.Config
	creds  *credService.Service
	dialer domain.Dialer

	mu       sync.Mutex
	sessions map[int64]*domain.Session
}

// New creates a new setup conversation service
func New(cfg *config.Config, creds *credService.Service, dialer domain.Dialer) *Service {
	return &Service{
		cfg:      cfg,
		creds:    creds,
		dialer:   dialer,
		sessions: make(map[int64]*domain.Session),
	}
}

// Active reports whether userID has a conversation in flight
func (s *Service) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Start opens a new conversation for userID and returns the first prompt.
// Refused with ErrAlreadyConfigured when the credentials store is already
// complete (a /reset is required first) and with ErrConversationActive
// when a session is already in flight.
func (s *Service) Start(ctx context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds.ScannerReady() {
		return "", sharedErrors.ErrAlreadyConfigured
	}
	if _, ok := s.sessions[userID]; ok {
		return "", sharedErrors.ErrConversationActive
	}

	s.sessions[userID] = &domain.Session{
		UserID: userID,
		State:  domain.StateAwaitApiId,
	}
	slog.Info("Setup conversation started", "user_id", userID)
	return promptAPIID, nil
}

// Cancel tears down userID's conversation, releasing any open pre-auth
// connection. Returns ErrNoConversation when nothing is in flight.
func (s *Service) Cancel(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return sharedErrors.ErrNoConversation
	}
	s.end(sess)
	slog.Info("Setup conversation cancelled", "user_id", userID)
	return nil
}

// Shutdown releases every open pre-auth connection. Called on process
// exit.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		s.end(sess)
	}
}

// Handle feeds one message from userID into its conversation.
func (s *Service) Handle(ctx context.Context, userID int64, text string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Result{}
	}

	text = strings.TrimSpace(text)

	switch sess.State {
	case domain.StateAwaitApiId:
		return s.handleAPIID(sess, text)
	case domain.StateAwaitApiHash:
		return s.handleAPIHash(sess, text)
	case domain.StateAwaitPhone:
		return s.handlePhone(ctx, sess, text)
	case domain.StateAwaitCode:
		return s.handleCode(sess, text)
	case domain.StateAwaitPassword:
		return s.handlePassword(ctx, sess, text)
	default:
		s.end(sess)
		return Result{Reply: "Setup aborted. Run /setup to start over.", Handled: true}
	}
}

func (s *Service) handleAPIID(sess *domain.Session, text string) Result {
	id, err := strconv.Atoi(text)
	if err != nil || id <= 0 {
		return Result{Reply: "The API id must be a positive number. " + promptAPIID, Handled: true}
	}
	sess.APIID = id
	sess.State = domain.StateAwaitApiHash
	return Result{Reply: promptAPIHash, Handled: true}
}

func (s *Service) handleAPIHash(sess *domain.Session, text string) Result {
	sess.APIHash = text
	sess.State = domain.StateAwaitPhone
	return Result{Reply: promptPhone, Handled: true}
}

func (s *Service) handlePhone(ctx context.Context, sess *domain.Session, text string) Result {
	sess.Phone = text

	conn, err := s.dialer.Dial(ctx, sess.APIID, sess.APIHash)
	if err != nil {
		s.end(sess)
		return Result{Reply: fmt.Sprintf("Failed to connect: %v\nSetup aborted, run /setup to try again.", err), Handled: true}
	}

	codeHash, err := conn.SendCode(ctx, sess.Phone)
	if err != nil {
		sess.Conn = conn
		s.end(sess)
		return Result{Reply: fmt.Sprintf("Failed to request a verification code: %v\nSetup aborted, run /setup to try again.", err), Handled: true}
	}

	sess.Conn = conn
	sess.CodeHash = codeHash
	sess.State = domain.StateAwaitCode
	return Result{Reply: fmt.Sprintf("A verification code was sent to %s. Enter the code:", sess.Phone), Handled: true}
}

func (s *Service) handleCode(sess *domain.Session, text string) Result {
	sess.Code = text
	sess.State = domain.StateAwaitPassword
	return Result{Reply: promptPassword, Handled: true}
}

func (s *Service) handlePassword(ctx context.Context, sess *domain.Session, text string) Result {
	err := sess.Conn.SignIn(ctx, sess.Phone, sess.Code, sess.CodeHash)
	if errors.Is(err, sharedErrors.ErrPasswordNeeded) {
		if strings.EqualFold(text, "none") {
			s.end(sess)
			return Result{Reply: "The account requires a two-factor password.\nSetup aborted, run /setup to try again.", Handled: true}
		}
		err = sess.Conn.Password(ctx, text)
	}
	if err != nil {
		s.end(sess)
		return Result{Reply: fmt.Sprintf("Sign-in failed: %v\nSetup aborted, run /setup to try again.", err), Handled: true}
	}

	token, err := sess.Conn.ExportSession(ctx)
	if err != nil {
		s.end(sess)
		return Result{Reply: fmt.Sprintf("Failed to save the session: %v\nSetup aborted, run /setup to try again.", err), Handled: true}
	}

	creds := &credDomain.Credentials{
		APIID:        sess.APIID,
		APIHash:      sess.APIHash,
		SessionToken: token,
		BotToken:     s.cfg.TelegramBotToken,
		AdminID:      sess.UserID,
	}
	if err := s.creds.Save(creds); err != nil {
		s.end(sess)
		return Result{Reply: fmt.Sprintf("Failed to persist credentials: %v\nSetup aborted, run /setup to try again.", err), Handled: true}
	}

	s.end(sess)
	slog.Info("Setup conversation completed", "user_id", sess.UserID)
	return Result{Reply: "Setup complete. Monitoring starts now; manage nicknames with /adduser and /removeuser.", Handled: true, Completed: true}
}

// end releases the session's pre-auth connection and removes it from the
// table. Callers hold s.mu.
func (s *Service) end(sess *domain.Session) {
	if sess.Conn != nil {
		if err := sess.Conn.Close(); err != nil {
			slog.Error("Failed to close pre-auth connection", "user_id", sess.UserID, "error", err)
		}
		sess.Conn = nil
	}
	delete(s.sessions, sess.UserID)
}
