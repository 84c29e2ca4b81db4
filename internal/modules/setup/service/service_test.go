package service

import (
	"context"
	"errors"
	"testing"

	credDomain "github.com/mentionwatch/mentionwatch/internal/modules/credentials/domain"
	credRepo "github.com/mentionwatch/mentionwatch/internal/modules/credentials/repository"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	"github.com/mentionwatch/mentionwatch/internal/modules/setup/domain"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	codeHash    string
	session     string
	sendCodeErr error
	signInErr   error
	passwordErr error

	sentPhone string
	signedIn  bool
	password  string
	closed    bool
}

func (c *fakeConn) SendCode(ctx context.Context, phone string) (string, error) {
	c.sentPhone = phone
	if c.sendCodeErr != nil {
		return "", c.sendCodeErr
	}
	return c.codeHash, nil
}

func (c *fakeConn) SignIn(ctx context.Context, phone, code, codeHash string) error {
	c.signedIn = true
	return c.signInErr
}

func (c *fakeConn) Password(ctx context.Context, password string) error {
	c.password = password
	return c.passwordErr
}

func (c *fakeConn) ExportSession(ctx context.Context) (string, error) {
	return c.session, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conn    *fakeConn
	dialErr error
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, apiID int, apiHash string) (domain.Conn, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.conn, nil
}

func newTestSetup(t *testing.T, dialer domain.Dialer) (*Service, *credService.Service) {
	t.Helper()
	repo, err := credRepo.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	creds := credService.New(repo)
	cfg := &config.Config{TelegramBotToken: "bot-token"}
	return New(cfg, creds, dialer), creds
}

func walkToCode(t *testing.T, svc *Service, userID int64) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Start(ctx, userID)
	require.NoError(t, err)

	res := svc.Handle(ctx, userID, "12345")
	require.True(t, res.Handled)
	res = svc.Handle(ctx, userID, "abcdef")
	require.True(t, res.Handled)
	res = svc.Handle(ctx, userID, "+15550001111")
	require.True(t, res.Handled)
	require.Contains(t, res.Reply, "+15550001111")
	res = svc.Handle(ctx, userID, "54321")
	require.True(t, res.Handled)
}

func TestSetupHappyPathNoPassword(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{codeHash: "hash-1", session: "exported-session"}
	svc, creds := newTestSetup(t, &fakeDialer{conn: conn})

	walkToCode(t, svc, 42)

	res := svc.Handle(ctx, 42, "none")
	assert.True(t, res.Handled)
	assert.True(t, res.Completed)

	stored, err := creds.Get()
	require.NoError(t, err)
	assert.Equal(t, &credDomain.Credentials{
		APIID:        12345,
		APIHash:      "abcdef",
		SessionToken: "exported-session",
		BotToken:     "bot-token",
		AdminID:      42,
	}, stored)

	assert.Equal(t, "+15550001111", conn.sentPhone)
	assert.True(t, conn.signedIn)
	assert.True(t, conn.closed)
	assert.False(t, svc.Active(42))
}

func TestSetupTwoFactorPath(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{codeHash: "hash-1", session: "s", signInErr: sharedErrors.ErrPasswordNeeded}
	svc, creds := newTestSetup(t, &fakeDialer{conn: conn})

	walkToCode(t, svc, 42)

	res := svc.Handle(ctx, 42, "hunter2")
	assert.True(t, res.Completed)
	assert.Equal(t, "hunter2", conn.password)
	assert.True(t, conn.closed)
	assert.True(t, creds.ScannerReady())
}

func TestSetupTwoFactorDeclined(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{codeHash: "hash-1", signInErr: sharedErrors.ErrPasswordNeeded}
	svc, creds := newTestSetup(t, &fakeDialer{conn: conn})

	walkToCode(t, svc, 42)

	// The account needs a password the user says it does not have.
	res := svc.Handle(ctx, 42, "none")
	assert.True(t, res.Handled)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Reply, "aborted")
	assert.True(t, conn.closed)
	assert.False(t, svc.Active(42))
	assert.False(t, creds.IsComplete())
}

func TestSetupRejectsBadAPIID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSetup(t, &fakeDialer{conn: &fakeConn{}})

	_, err := svc.Start(ctx, 42)
	require.NoError(t, err)

	// Non-numeric and non-positive answers re-prompt without advancing.
	for _, bad := range []string{"abc", "-5", "0"} {
		res := svc.Handle(ctx, 42, bad)
		assert.True(t, res.Handled)
		assert.Contains(t, res.Reply, "positive number")
	}
	assert.True(t, svc.Active(42))

	res := svc.Handle(ctx, 42, "12345")
	assert.True(t, res.Handled)
	assert.Equal(t, promptAPIHash, res.Reply)
}

func TestSetupRefusedWhenConfigured(t *testing.T) {
	svc, creds := newTestSetup(t, &fakeDialer{conn: &fakeConn{}})
	require.NoError(t, creds.Save(&credDomain.Credentials{
		APIID:        1,
		APIHash:      "h",
		SessionToken: "s",
		BotToken:     "b",
		AdminID:      42,
	}))

	_, err := svc.Start(context.Background(), 42)
	assert.ErrorIs(t, err, sharedErrors.ErrAlreadyConfigured)
}

func TestSetupRefusedWhenActive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSetup(t, &fakeDialer{conn: &fakeConn{}})

	_, err := svc.Start(ctx, 42)
	require.NoError(t, err)

	_, err = svc.Start(ctx, 42)
	assert.ErrorIs(t, err, sharedErrors.ErrConversationActive)
}

func TestCancelReleasesConnection(t *testing.T) {
	conn := &fakeConn{codeHash: "hash-1"}
	svc, _ := newTestSetup(t, &fakeDialer{conn: conn})

	walkToCode(t, svc, 42)

	require.NoError(t, svc.Cancel(42))
	assert.True(t, conn.closed)
	assert.False(t, svc.Active(42))

	// A fresh conversation starts from the beginning.
	prompt, err := svc.Start(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, promptAPIID, prompt)
}

func TestCancelWithoutConversation(t *testing.T) {
	svc, _ := newTestSetup(t, &fakeDialer{conn: &fakeConn{}})
	assert.ErrorIs(t, svc.Cancel(42), sharedErrors.ErrNoConversation)
}

func TestDialFailureAborts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSetup(t, &fakeDialer{dialErr: errors.New("network down")})

	_, err := svc.Start(ctx, 42)
	require.NoError(t, err)
	svc.Handle(ctx, 42, "12345")
	svc.Handle(ctx, 42, "abcdef")

	res := svc.Handle(ctx, 42, "+15550001111")
	assert.True(t, res.Handled)
	assert.Contains(t, res.Reply, "Failed to connect")
	assert.False(t, svc.Active(42))
}

func TestSendCodeFailureClosesConnection(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{sendCodeErr: errors.New("phone rejected")}
	svc, _ := newTestSetup(t, &fakeDialer{conn: conn})

	_, err := svc.Start(ctx, 42)
	require.NoError(t, err)
	svc.Handle(ctx, 42, "12345")
	svc.Handle(ctx, 42, "abcdef")

	res := svc.Handle(ctx, 42, "+15550001111")
	assert.Contains(t, res.Reply, "verification code")
	assert.True(t, conn.closed)
	assert.False(t, svc.Active(42))
}

func TestSignInFailureClosesConnection(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{codeHash: "hash-1", signInErr: errors.New("code expired")}
	svc, creds := newTestSetup(t, &fakeDialer{conn: conn})

	walkToCode(t, svc, 42)

	res := svc.Handle(ctx, 42, "none")
	assert.Contains(t, res.Reply, "Sign-in failed")
	assert.True(t, conn.closed)
	assert.False(t, svc.Active(42))
	assert.False(t, creds.IsComplete())
}

func TestHandleWithoutConversation(t *testing.T) {
	svc, _ := newTestSetup(t, &fakeDialer{conn: &fakeConn{}})

	res := svc.Handle(context.Background(), 42, "hello")
	assert.False(t, res.Handled)
}

func TestShutdownReleasesAllConnections(t *testing.T) {
	conn := &fakeConn{codeHash: "hash-1"}
	svc, _ := newTestSetup(t, &fakeDialer{conn: conn})

	walkToCode(t, svc, 42)

	svc.Shutdown()
	assert.True(t, conn.closed)
	assert.False(t, svc.Active(42))
}
