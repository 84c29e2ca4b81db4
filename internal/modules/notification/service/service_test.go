package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	credDomain "github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
	credRepo "github.com/mentionwatch/mentionwatch/internal/modules/credentials/repository"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionDomain "github.com/mentionwatch/mentionwatch/internal/modules/mention/domain"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	errs  []error
	calls []*bot.SendMessageParams
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.calls = append(f.calls, params)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &models.Message{}, nil
}

func newTestDispatcher(t *testing.T, sender Sender, configured bool) (*Service, *[]time.Duration) {
	t.Helper()
	repo, err := credRepo.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	creds := credService.New(repo)
	if configured {
		require.NoError(t, creds.Save(&credDomain.Credentials{BotToken: "bot", AdminID: 42}))
	}

	svc := New(&config.Config{DeepLinkRoot: "https://t.me/c"}, creds)
	svc.SetSender(sender)

	slept := &[]time.Duration{}
	svc.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
	}
	return svc, slept
}

func sampleMention() *mentionDomain.Mention {
	return &mentionDomain.Mention{
		Nickname:   "alice",
		ChatID:     -1001234567890,
		ChatTitle:  "Dev Chat",
		ChatHandle: "devchat",
		MessageID:  7,
		Text:       "hi @alice, check this",
		Date:       time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func TestDispatchDeliversToAdmin(t *testing.T) {
	sender := &fakeSender{}
	svc, _ := newTestDispatcher(t, sender, true)

	require.NoError(t, svc.Dispatch(context.Background(), sampleMention()))

	require.Len(t, sender.calls, 1)
	assert.Equal(t, int64(42), sender.calls[0].ChatID)
	assert.Contains(t, sender.calls[0].Text, "alice")
	assert.Contains(t, sender.calls[0].Text, "https://t.me/c/1234567890/7")
}

func TestDispatchRetriesOnceOnRateLimit(t *testing.T) {
	sender := &fakeSender{errs: []error{&bot.TooManyRequestsError{Message: "too many requests", RetryAfter: 2}, nil}}
	svc, slept := newTestDispatcher(t, sender, true)

	require.NoError(t, svc.Dispatch(context.Background(), sampleMention()))

	assert.Len(t, sender.calls, 2)
	require.Len(t, *slept, 1)
	assert.Equal(t, 2*time.Second, (*slept)[0])
}

func TestDispatchDropsAfterSecondRateLimit(t *testing.T) {
	sender := &fakeSender{errs: []error{
		&bot.TooManyRequestsError{Message: "too many requests", RetryAfter: 1},
		&bot.TooManyRequestsError{Message: "too many requests", RetryAfter: 1},
	}}
	svc, slept := newTestDispatcher(t, sender, true)

	err := svc.Dispatch(context.Background(), sampleMention())
	assert.Error(t, err)
	assert.Len(t, sender.calls, 2)
	assert.Len(t, *slept, 1)
}

func TestDispatchDropsOnTerminalError(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("forbidden")}}
	svc, slept := newTestDispatcher(t, sender, true)

	err := svc.Dispatch(context.Background(), sampleMention())
	assert.Error(t, err)
	assert.Len(t, sender.calls, 1)
	assert.Empty(t, *slept)
}

func TestDispatchUnconfigured(t *testing.T) {
	sender := &fakeSender{}
	svc, _ := newTestDispatcher(t, sender, false)

	err := svc.Dispatch(context.Background(), sampleMention())
	assert.ErrorIs(t, err, sharedErrors.ErrNotConfigured)
	assert.Empty(t, sender.calls)
}

func TestAlertBestEffort(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("boom")}}
	svc, slept := newTestDispatcher(t, sender, true)

	// Alert never retries, even on failure.
	svc.Alert(context.Background(), "monitoring stopped")
	assert.Len(t, sender.calls, 1)
	assert.Empty(t, *slept)
}

func TestFormat(t *testing.T) {
	m := sampleMention()
	got := Format(m, "https://t.me/c")

	want := "Mention of alice in 'Dev Chat' (@devchat):\n" +
		"hi @alice, check this\n" +
		"Link: https://t.me/c/1234567890/7\n" +
		"Time: 2026-03-14 15:09:26 UTC"
	assert.Equal(t, want, got)
}

func TestFormatEditedAndNoHandle(t *testing.T) {
	m := sampleMention()
	m.Edited = true
	m.ChatHandle = ""

	got := Format(m, "https://t.me/c")
	assert.Contains(t, got, "[edited] Mention of alice")
	assert.Contains(t, got, "(-1001234567890)")
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://t.me/c/1234567890/7", DeepLink("https://t.me/c", -1001234567890, 7))
	assert.Equal(t, "https://t.me/c/100/7", DeepLink("https://t.me/c", 100, 7))
	assert.Equal(t, "https://t.me/c/-55/3", DeepLink("https://t.me/c", -55, 3))
}
