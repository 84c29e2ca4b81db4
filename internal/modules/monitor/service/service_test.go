package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	credDomain "github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
	credRepo "github.com/mentionwatch/mentionwatch/internal/modules/credentials/repository"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionRepo "github.com/mentionwatch/mentionwatch/internal/modules/mention/repository"
	mentionService "github.com/mentionwatch/mentionwatch/internal/modules/mention/service"
	nicknameRepo "github.com/mentionwatch/mentionwatch/internal/modules/nickname/repository"
	nicknameService "github.com/mentionwatch/mentionwatch/internal/modules/nickname/service"
	notificationService "github.com/mentionwatch/mentionwatch/internal/modules/notification/service"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	calls []*bot.SendMessageParams
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.calls = append(f.calls, params)
	return &models.Message{}, nil
}

type blockingRunner struct {
	started chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, sink Sink) error {
	if r.started != nil {
		close(r.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

type fixture struct {
	svc    *Service
	sender *fakeSender
	creds  *credService.Service
}

func newFixture(t *testing.T, configured bool, tracked []string) *fixture {
	t.Helper()
	dir := t.TempDir()

	cRepo, err := credRepo.NewFileStorage(dir)
	require.NoError(t, err)
	creds := credService.New(cRepo)
	if configured {
		require.NoError(t, creds.Save(&credDomain.Credentials{
			APIID:        123,
			APIHash:      "hash",
			SessionToken: "session",
			BotToken:     "bot",
			AdminID:      42,
		}))
	}

	nRepo, err := nicknameRepo.NewFileStorage(dir)
	require.NoError(t, err)
	nicknames := nicknameService.New(nRepo)
	for _, n := range tracked {
		require.NoError(t, nicknames.Add(n))
	}

	mRepo, err := mentionRepo.NewFileStorage(dir)
	require.NoError(t, err)
	mentions := mentionService.New(mRepo)

	sender := &fakeSender{}
	notifier := notificationService.New(&config.Config{DeepLinkRoot: "https://t.me/c"}, creds)
	notifier.SetSender(sender)

	svc := New(creds, nicknames, notifier, mentions, &blockingRunner{})
	return &fixture{svc: svc, sender: sender, creds: creds}
}

func TestHandleIncomingDispatchesAndRecords(t *testing.T) {
	f := newFixture(t, true, []string{"alice"})
	ctx := context.Background()

	f.svc.HandleIncoming(ctx, IncomingMessage{
		ChatID:    100,
		ChatTitle: "Dev Chat",
		MessageID: 7,
		Text:      "hi @alice, check this",
		Date:      time.Now(),
	})

	require.Len(t, f.sender.calls, 1)
	assert.Equal(t, int64(42), f.sender.calls[0].ChatID)
	assert.Contains(t, f.sender.calls[0].Text, "alice")
	assert.Contains(t, f.sender.calls[0].Text, "/100/7")

	count, err := f.svc.mentions.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleIncomingOnePerNickname(t *testing.T) {
	f := newFixture(t, true, []string{"alice", "bob"})

	f.svc.HandleIncoming(context.Background(), IncomingMessage{
		ChatID:    100,
		MessageID: 7,
		Text:      "ping @alice and @bob",
		Date:      time.Now(),
	})

	require.Len(t, f.sender.calls, 2)
	assert.Contains(t, f.sender.calls[0].Text, "alice")
	assert.Contains(t, f.sender.calls[1].Text, "bob")
}

func TestHandleIncomingSkipsOutgoing(t *testing.T) {
	f := newFixture(t, true, []string{"alice"})

	f.svc.HandleIncoming(context.Background(), IncomingMessage{
		ChatID:    100,
		MessageID: 7,
		Text:      "note to self about @alice",
		Outgoing:  true,
		Date:      time.Now(),
	})

	assert.Empty(t, f.sender.calls)
}

func TestHandleIncomingNoMatch(t *testing.T) {
	f := newFixture(t, true, []string{"alice"})

	f.svc.HandleIncoming(context.Background(), IncomingMessage{
		ChatID:    100,
		MessageID: 7,
		Text:      "nothing interesting",
		Date:      time.Now(),
	})

	assert.Empty(t, f.sender.calls)
}

func TestStartInertWithoutSession(t *testing.T) {
	f := newFixture(t, false, nil)

	f.svc.Start(context.Background())
	assert.False(t, f.svc.Running())
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t, true, nil)
	started := make(chan struct{})
	f.svc.runner = &blockingRunner{started: started}

	f.svc.Start(context.Background())
	assert.True(t, f.svc.Running())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never started")
	}

	f.svc.Stop()
	assert.False(t, f.svc.Running())
}

func TestStartTwiceIsNoop(t *testing.T) {
	f := newFixture(t, true, nil)
	started := make(chan struct{})
	f.svc.runner = &blockingRunner{started: started}

	ctx := context.Background()
	f.svc.Start(ctx)
	f.svc.Start(ctx)
	assert.True(t, f.svc.Running())
	f.svc.Stop()
}
