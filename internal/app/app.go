// Package app assembles repositories, channels and use cases from configuration
package app

import (
	"context"
	"fmt"

	"github.com/apex/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ulpfield/hazard-bot/internal/api"
	"github.com/ulpfield/hazard-bot/internal/config"
	"github.com/ulpfield/hazard-bot/internal/integration"
	"github.com/ulpfield/hazard-bot/internal/integration/openai"
	"github.com/ulpfield/hazard-bot/internal/integration/whatsapp"
	"github.com/ulpfield/hazard-bot/internal/prediction"
	"github.com/ulpfield/hazard-bot/internal/repository"
	"github.com/ulpfield/hazard-bot/internal/usecases"
)

// App holds the wired components shared by the binaries
type App struct {
	Config   *config.Config
	Repo     *repository.SQLiteFindingRepository
	Log      *repository.SQLiteNotificationLog
	Findings *usecases.FindingUseCase
	// Notifier is nil when no delivery channel is configured
	Notifier *usecases.NotificationUseCase
	// Telegram is nil without TELEGRAM_BOT_TOKEN
	Telegram *tgbotapi.BotAPI

	closers []func() error
}

// New builds the application. Optional integrations that fail to start are logged and skipped;
// only the database is mandatory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := repository.NewSQLiteFindingRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	a := &App{
		Config:  cfg,
		Repo:    repo,
		Log:     repository.NewSQLiteNotificationLog(repo.DB()),
		closers: []func() error{repo.Close},
	}

	var source usecases.FindingSource
	if cfg.SheetURL != "" {
		source = integration.NewSheetScraper(cfg.SheetURL, cfg.SheetTimeout())
	} else {
		log.Warn("SHEET_URL is not set, findings will not be refreshed")
	}

	var openAIService openai.OpenAIService
	if cfg.OpenAIAPIKey != "" {
		openAIService, err = openai.NewOpenAIService(cfg.OpenAIAPIKey)
		if err != nil {
			log.WithError(err).Warn("OpenAI service disabled")
			openAIService = nil
		}
	}

	predictor := prediction.NewPredictor(prediction.SystemClock{Location: cfg.Location()})
	a.Findings = usecases.NewFindingUseCase(repo, source, openAIService, predictor)

	if cfg.TelegramBotToken != "" {
		a.Telegram, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
	}

	sender, err := a.sender()
	if err != nil {
		log.WithError(err).Warnf("Notification channel %q disabled", cfg.Channel)
		return a, nil
	}
	a.Notifier = usecases.NewNotificationUseCase(sender, a.Log, a.guard(ctx), usecases.NotificationConfig{
		DailyTime:   cfg.DailyNotifyTime,
		SendTimeout: cfg.SendTimeout(),
	})
	log.WithField("channel", cfg.Channel).Info("Notification channel ready")
	return a, nil
}

func (a *App) sender() (usecases.Sender, error) {
	switch a.Config.Channel {
	case config.ChannelWhatsApp:
		return whatsapp.NewSender(whatsapp.Config{
			APIURL:  a.Config.WhatsAppAPIURL,
			Token:   a.Config.WhatsAppToken,
			Target:  a.Config.WhatsAppTarget,
			Timeout: a.Config.WhatsAppTimeout(),
		})
	case config.ChannelTelegram:
		if a.Telegram == nil {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
		}
		return api.NewTelegramSender(a.Telegram, a.Config.TelegramChatID)
	default:
		return nil, fmt.Errorf("unknown channel %q", a.Config.Channel)
	}
}

// guard prefers Redis when configured and falls back to the notification log
func (a *App) guard(ctx context.Context) usecases.DeliveryGuard {
	if a.Config.RedisAddr != "" {
		g, err := repository.NewRedisDeliveryGuard(ctx, a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
		if err == nil {
			a.closers = append(a.closers, g.Close)
			log.WithField("addr", a.Config.RedisAddr).Info("Using Redis delivery guard")
			return g
		}
		log.WithError(err).Warn("Redis unavailable, using notification log as delivery guard")
	}
	return repository.NewLogDeliveryGuard(a.Log)
}

// Close releases everything New opened, in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("Error during shutdown")
		}
	}
	a.closers = nil
}
