package errors

import "errors"

var (
	ErrMissingBotToken = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrUnauthorized    = errors.New("unauthorized user")

	// Credentials store outcomes.
	ErrNotConfigured     = errors.New("credentials are not configured")
	ErrAlreadyConfigured = errors.New("credentials are already configured")

	// Tracked-nickname outcomes.
	ErrAlreadyTracked = errors.New("nickname is already tracked")
	ErrNotTracked     = errors.New("nickname is not tracked")

	// Setup conversation outcomes.
	ErrConversationActive = errors.New("a setup conversation is already in progress")
	ErrNoConversation     = errors.New("no active setup conversation")

	// ErrPasswordNeeded is returned by a pre-auth connection when the
	// account has two-factor authentication enabled and a cloud password
	// must complete the sign-in.
	ErrPasswordNeeded = errors.New("two-factor password required")
)
