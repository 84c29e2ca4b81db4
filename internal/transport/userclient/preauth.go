package userclient

import (
	"context"
	"errors"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	setupDomain "github.com/mentionwatch/mentionwatch/internal/modules/setup/domain"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

const dialTimeout = 30 * time.Second

// Dialer opens pre-authentication connections for the setup conversation.
// Each connection holds a background client.Run until Close cancels it, so
// the code/password round-trips can take as long as the administrator
// needs.
type Dialer struct{}

// NewDialer creates a new pre-auth dialer
func NewDialer() *Dialer {
	return &Dialer{}
}

func (d *Dialer) Dial(ctx context.Context, apiID int, apiHash string) (setupDomain.Conn, error) {
	storage := &session.StorageMemory{}
	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: storage,
		Logger:         zap.NewNop(),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	conn := &preauthConn{
		client:    client,
		storage:   storage,
		cancel:    cancel,
		done:      make(chan struct{}),
		connected: make(chan error, 1),
	}

	go func() {
		defer close(conn.done)
		err := client.Run(runCtx, func(ctx context.Context) error {
			select {
			case conn.connected <- nil:
			default:
			}
			<-ctx.Done()
			return ctx.Err()
		})
		select {
		case conn.connected <- err:
		default:
		}
	}()

	select {
	case err := <-conn.connected:
		if err != nil {
			conn.Close()
			return nil, oops.With("api_id", apiID, "context", "failed to connect").Wrap(err)
		}
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	case <-time.After(dialTimeout):
		conn.Close()
		return nil, oops.With("api_id", apiID).Errorf("timed out connecting")
	}

	return conn, nil
}

type preauthConn struct {
	client    *telegram.Client
	storage   *session.StorageMemory
	cancel    context.CancelFunc
	done      chan struct{}
	connected chan error
}

func (c *preauthConn) SendCode(ctx context.Context, phone string) (string, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", oops.With("context", "send code").Wrap(err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", oops.Errorf("unexpected send code response: %T", sent)
	}
	return code.PhoneCodeHash, nil
}

func (c *preauthConn) SignIn(ctx context.Context, phone, code, codeHash string) error {
	_, err := c.client.Auth().SignIn(ctx, phone, code, codeHash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return sharedErrors.ErrPasswordNeeded
	}
	return err
}

func (c *preauthConn) Password(ctx context.Context, password string) error {
	_, err := c.client.Auth().Password(ctx, password)
	return err
}

func (c *preauthConn) ExportSession(ctx context.Context) (string, error) {
	data, err := c.storage.LoadSession(ctx)
	if err != nil {
		return "", oops.With("context", "export session").Wrap(err)
	}
	return string(data), nil
}

func (c *preauthConn) Close() error {
	c.cancel()
	<-c.done
	return nil
}
