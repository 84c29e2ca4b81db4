package di

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	credRepo "github.com/mentionwatch/mentionwatch/internal/modules/credentials/repository"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionRepo "github.com/mentionwatch/mentionwatch/internal/modules/mention/repository"
	mentionService "github.com/mentionwatch/mentionwatch/internal/modules/mention/service"
	monitorService "github.com/mentionwatch/mentionwatch/internal/modules/monitor/service"
	nicknameRepo "github.com/mentionwatch/mentionwatch/internal/modules/nickname/repository"
	nicknameService "github.com/mentionwatch/mentionwatch/internal/modules/nickname/service"
	notificationService "github.com/mentionwatch/mentionwatch/internal/modules/notification/service"
	setupService "github.com/mentionwatch/mentionwatch/internal/modules/setup/service"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	httpServer "github.com/mentionwatch/mentionwatch/internal/transport/http"
	telegramHandler "github.com/mentionwatch/mentionwatch/internal/transport/telegram"
	"github.com/mentionwatch/mentionwatch/internal/transport/userclient"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Credentials Repository
	do.Provide(injector, func(i do.Injector) (credRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := credRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize credentials repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Nickname Repository
	do.Provide(injector, func(i do.Injector) (nicknameRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := nicknameRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize nickname repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Mention Repository
	do.Provide(injector, func(i do.Injector) (mentionRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := mentionRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize mention repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Credentials Service
	do.Provide(injector, func(i do.Injector) (*credService.Service, error) {
		repo := do.MustInvoke[credRepo.Repository](i)
		return credService.New(repo), nil
	})

	// Register Nickname Service
	do.Provide(injector, func(i do.Injector) (*nicknameService.Service, error) {
		repo := do.MustInvoke[nicknameRepo.Repository](i)
		return nicknameService.New(repo), nil
	})

	// Register Mention Service
	do.Provide(injector, func(i do.Injector) (*mentionService.Service, error) {
		repo := do.MustInvoke[mentionRepo.Repository](i)
		return mentionService.New(repo), nil
	})

	// Register Notification Service
	do.Provide(injector, func(i do.Injector) (*notificationService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		creds := do.MustInvoke[*credService.Service](i)
		return notificationService.New(cfg, creds), nil
	})

	// Register Setup Service
	do.Provide(injector, func(i do.Injector) (*setupService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		creds := do.MustInvoke[*credService.Service](i)
		return setupService.New(cfg, creds, userclient.NewDialer()), nil
	})

	// Register Monitor Service
	do.Provide(injector, func(i do.Injector) (*monitorService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		creds := do.MustInvoke[*credService.Service](i)
		nicknames := do.MustInvoke[*nicknameService.Service](i)
		notifier := do.MustInvoke[*notificationService.Service](i)
		mentions := do.MustInvoke[*mentionService.Service](i)
		runner := userclient.NewRunner(cfg, creds)
		return monitorService.New(creds, nicknames, notifier, mentions, runner), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		creds := do.MustInvoke[*credService.Service](i)
		nicknames := do.MustInvoke[*nicknameService.Service](i)
		setup := do.MustInvoke[*setupService.Service](i)
		monitor := do.MustInvoke[*monitorService.Service](i)
		mentions := do.MustInvoke[*mentionService.Service](i)
		return telegramHandler.New(cfg, creds, nicknames, setup, monitor, mentions), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		creds := do.MustInvoke[*credService.Service](i)
		nicknames := do.MustInvoke[*nicknameService.Service](i)
		mentions := do.MustInvoke[*mentionService.Service](i)
		monitor := do.MustInvoke[*monitorService.Service](i)
		server := httpServer.New(cfg, creds, nicknames, mentions, monitor)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		telegramHandler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(telegramHandler.HandleUpdate),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		telegramHandler.RegisterCommands(b)

		// Bind the outbound client into the notification dispatcher
		notifier := do.MustInvoke[*notificationService.Service](i)
		notifier.SetSender(b)

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Shutdown bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	// Stop the scanner if it is running
	if monitor, err := do.Invoke[*monitorService.Service](injector); err == nil && monitor != nil {
		monitor.Stop()
	}

	// Drop any in-flight setup conversations
	if setup, err := do.Invoke[*setupService.Service](injector); err == nil && setup != nil {
		setup.Shutdown()
	}

	return nil
}
