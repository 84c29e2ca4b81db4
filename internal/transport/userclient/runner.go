package userclient

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	pebbledb "github.com/cockroachdb/pebble"
	boltstor "github.com/gotd/contrib/bbolt"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/contrib/pebble"
	"github.com/gotd/contrib/storage"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	monitorService "github.com/mentionwatch/mentionwatch/internal/modules/monitor/service"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sharedErrors "github.com/mentionwatch/mentionwatch/internal/shared/errors"
	"github.com/samber/oops"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Runner drives the user-account event stream: it connects with the
// stored session and feeds every new or edited message into the monitor
// sink until the context is cancelled.
type Runner struct {
	cfg   *config.Config
	creds *credService.Service
}

// NewRunner creates a new user-client runner
func NewRunner(cfg *config.Config, creds *credService.Service) *Runner {
	return &Runner{
		cfg:   cfg,
		creds: creds,
	}
}

func (r *Runner) Run(ctx context.Context, sink monitorService.Sink) error {
	creds, err := r.creds.Get()
	if err != nil {
		return err
	}
	if !creds.ScannerReady() {
		return sharedErrors.ErrNotConfigured
	}

	if err := os.MkdirAll(r.cfg.SessionDir, 0700); err != nil {
		return oops.With("session_dir", r.cfg.SessionDir, "context", "failed to create session directory").Wrap(err)
	}

	// The MTProto client logs through zap, separately from the process
	// slog output.
	lg := newZapLogger(filepath.Join(r.cfg.SessionDir, "log.jsonl"))
	defer func() { _ = lg.Sync() }()

	db, err := pebbledb.Open(filepath.Join(r.cfg.SessionDir, "peers.pebble.db"), &pebbledb.Options{})
	if err != nil {
		return oops.With("context", "failed to open peer storage").Wrap(err)
	}
	defer db.Close()
	peerDB := pebble.NewPeerStorage(db)

	boltdb, err := bbolt.Open(filepath.Join(r.cfg.SessionDir, "updates.bolt.db"), 0o666, nil)
	if err != nil {
		return oops.With("context", "failed to open update state storage").Wrap(err)
	}
	defer boltdb.Close()

	dispatcher := tg.NewUpdateDispatcher()
	updateHandler := storage.UpdateHook(dispatcher, peerDB)
	updatesRecovery := updates.New(updates.Config{
		Handler: updateHandler,
		Logger:  lg.Named("updates.recovery"),
		Storage: boltstor.NewStateStorage(boltdb),
	})

	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		slog.Warn("Flood wait on the event stream", "wait", wait.Duration)
	})

	client := telegram.NewClient(creds.APIID, creds.APIHash, telegram.Options{
		Logger:         lg,
		SessionStorage: &credentialsSessionStorage{creds: r.creds},
		UpdateHandler:  updatesRecovery,
		Middlewares: []telegram.Middleware{
			waiter,
			ratelimit.New(rate.Every(100*time.Millisecond), 5),
		},
	})
	api := client.API()

	registerHandlers(dispatcher, peerDB, sink)

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return oops.With("context", "auth status").Wrap(err)
			}
			if !status.Authorized {
				return oops.Errorf("stored session is not authorized, run /reset and /setup again")
			}

			self, err := client.Self(ctx)
			if err != nil {
				return oops.With("context", "self").Wrap(err)
			}
			slog.Info("Scanning as user account", "user_id", self.ID, "username", self.Username)

			// Seed the peer storage so edited-message updates that
			// arrive without entities can still be described.
			collector := storage.CollectPeers(peerDB)
			if err := collector.Dialogs(ctx, query.GetDialogs(api).Iter()); err != nil {
				slog.Warn("Failed to collect dialog peers", "error", err)
			}

			return updatesRecovery.Run(ctx, api, self.ID, updates.AuthOptions{
				IsBot: self.Bot,
			})
		})
	})
}

func registerHandlers(dispatcher tg.UpdateDispatcher, peerDB storage.PeerStorage, sink monitorService.Sink) {
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		return handleMessage(ctx, e, peerDB, sink, u.Message, false)
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		return handleMessage(ctx, e, peerDB, sink, u.Message, false)
	})
	dispatcher.OnEditMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditMessage) error {
		return handleMessage(ctx, e, peerDB, sink, u.Message, true)
	})
	dispatcher.OnEditChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditChannelMessage) error {
		return handleMessage(ctx, e, peerDB, sink, u.Message, true)
	})
}

func handleMessage(ctx context.Context, e tg.Entities, peerDB storage.PeerStorage, sink monitorService.Sink, msg tg.MessageClass, edited bool) error {
	m, ok := msg.(*tg.Message)
	if !ok || m.Message == "" {
		return nil
	}

	chatID, title, handle := describePeer(ctx, e, peerDB, m.PeerID)
	sink.HandleIncoming(ctx, monitorService.IncomingMessage{
		ChatID:     chatID,
		ChatTitle:  title,
		ChatHandle: handle,
		MessageID:  int64(m.ID),
		Text:       m.Message,
		Edited:     edited,
		Outgoing:   m.Out,
		Date:       time.Unix(int64(m.Date), 0),
	})
	return nil
}

// describePeer flattens an MTProto peer into a Bot-API-style chat id plus
// a display title and public handle, resolving from the update's entities
// first and the collected peer storage second.
func describePeer(ctx context.Context, e tg.Entities, peerDB storage.PeerStorage, peer tg.PeerClass) (int64, string, string) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		if u, ok := e.Users[p.UserID]; ok {
			return p.UserID, displayName(u), u.Username
		}
	case *tg.PeerChat:
		if c, ok := e.Chats[p.ChatID]; ok {
			return -p.ChatID, c.Title, ""
		}
	case *tg.PeerChannel:
		if c, ok := e.Channels[p.ChannelID]; ok {
			return botAPIChannelID(p.ChannelID), c.Title, c.Username
		}
	}

	if peerDB != nil {
		if p, err := storage.FindPeer(ctx, peerDB, peer); err == nil {
			switch {
			case p.Channel != nil:
				return botAPIChannelID(p.Channel.ID), p.Channel.Title, p.Channel.Username
			case p.Chat != nil:
				return -p.Chat.ID, p.Chat.Title, ""
			case p.User != nil:
				return p.User.ID, displayName(p.User), p.User.Username
			}
		}
	}

	return bareChatID(peer), "Unknown Chat", ""
}

func displayName(u *tg.User) string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	if name == "" {
		name = "Unknown"
	}
	return name
}

func bareChatID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return botAPIChannelID(p.ChannelID)
	default:
		return 0
	}
}

// botAPIChannelID converts a bare MTProto channel id to the Bot-API form
// carrying the -100 broadcast prefix.
func botAPIChannelID(id int64) int64 {
	return -1000000000000 - id
}

func newZapLogger(path string) *zap.Logger {
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxBackups: 3,
		MaxSize:    2, // MB
		MaxAge:     7, // days
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		writer,
		zap.InfoLevel,
	)
	return zap.New(core)
}
