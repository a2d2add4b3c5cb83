package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"

	"github.com/ulpfield/hazard-bot/internal/api"
	"github.com/ulpfield/hazard-bot/internal/app"
	"github.com/ulpfield/hazard-bot/internal/config"
)

func main() {
	log.Info("Starting Hazard Bot...")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	if a.Telegram == nil {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	// Seed the database so commands have data before the notifier's first sync
	if last, err := a.Findings.GetLastSyncTime(); err != nil || last.IsZero() {
		if err := a.Findings.RefreshFindings(); err != nil {
			log.WithError(err).Warn("Initial finding refresh failed")
		}
	}

	telegramBot := api.NewTelegramBot(a.Telegram, a.Findings, a.Notifier)
	telegramBot.Start(ctx)
	log.Info("Hazard Bot stopped")
}
