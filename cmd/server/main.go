package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/mentionwatch/mentionwatch/internal/di"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	monitorService "github.com/mentionwatch/mentionwatch/internal/modules/monitor/service"
	nicknameService "github.com/mentionwatch/mentionwatch/internal/modules/nickname/service"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	httpServer "github.com/mentionwatch/mentionwatch/internal/transport/http"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
)

func main() {
	// .env is optional, environment wins either way
	_ = godotenv.Load()

	// Setup structured logging with multiple handlers using slog-multi
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	// Use Fanout to send logs to both handlers
	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	// Setup dependency injection
	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	// Get services from DI container
	cfg := do.MustInvoke[*config.Config](injector)
	creds := do.MustInvoke[*credService.Service](injector)
	nicknames := do.MustInvoke[*nicknameService.Service](injector)
	monitor := do.MustInvoke[*monitorService.Service](injector)
	httpServer := do.MustInvoke[*httpServer.Server](injector)
	b := do.MustInvoke[*bot.Bot](injector)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Watch the flat files so out-of-band edits are picked up
	go creds.Watch(ctx)
	go nicknames.Watch(ctx)

	// Start scanning if an authenticated session already exists
	monitor.Start(ctx)

	// Start bot long polling
	go b.Start(ctx)

	// Start HTTP server
	go func() {
		if err := httpServer.Start(); err != nil {
			slog.Error("Failed to start HTTP server", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Application started", "port", cfg.HTTPPort)
	slog.Info("Press Ctrl+C to stop")

	// Graceful shutdown
	<-ctx.Done()
	slog.Info("Shutting down...")
}
