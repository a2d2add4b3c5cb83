// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ulpfield/hazard-bot/internal/usecases"
)

const helpText = "Perintah yang tersedia:\n" +
	"/start - Mulai bot\n" +
	"/kritis - Daftar pohon sangat berbahaya\n" +
	"/prioritas - Pratinjau laporan harian\n" +
	"/pohon [id] - Prediksi untuk satu temuan\n" +
	"/test [daily|critical] - Kirim pesan uji ke kanal notifikasi\n" +
	"/help - Tampilkan bantuan ini"

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	useCase  *usecases.FindingUseCase
	notifier *usecases.NotificationUseCase
}

// NewTelegramBot creates a new Telegram bot handler. notifier may be nil to disable /test.
func NewTelegramBot(bot *tgbotapi.BotAPI, useCase *usecases.FindingUseCase, notifier *usecases.NotificationUseCase) *TelegramBot {
	return &TelegramBot{
		bot:      bot,
		useCase:  useCase,
		notifier: notifier,
	}
}

// Start begins listening for and handling Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	log.Infof("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Info("Bot is now listening for messages...")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			log.WithFields(log.Fields{
				"user": update.Message.From.UserName,
				"id":   update.Message.From.ID,
			}).Infof("Received message: %s", update.Message.Text)

			t.handleMessage(ctx, update)
		}
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")

	if update.Message.IsCommand() {
		msg.Text = t.handleCommand(ctx, update.Message.Command(), update.Message.CommandArguments())
	} else {
		msg.Text = t.handleNonCommand(ctx, update.Message.Text)
	}

	log.Infof("Sending response to user %s", update.Message.From.UserName)
	if err := sendMarkdown(t.bot, msg); err != nil {
		log.WithError(err).Error("Error sending message")
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(ctx context.Context, command, args string) string {
	log.Infof("Handling /%s command with args '%s'", command, args)

	switch command {
	case "start":
		return "Selamat datang di bot pemantau pohon! Gunakan /kritis untuk melihat pohon sangat berbahaya atau /help untuk bantuan."

	case "help":
		return helpText

	case "kritis":
		critical, err := t.useCase.GetCriticalFindings()
		if err != nil {
			log.WithError(err).Error("Error fetching critical findings")
			return "Gagal mengambil data temuan. Silakan coba lagi nanti."
		}
		return t.useCase.FormatCriticalList(critical)

	case "prioritas":
		digest, err := t.useCase.GetDailyDigest()
		if err != nil {
			log.WithError(err).Error("Error building digest")
			return "Gagal mengambil data temuan. Silakan coba lagi nanti."
		}
		return digest

	case "pohon":
		return t.handleTreeCommand(strings.TrimSpace(args))

	case "test":
		if t.notifier == nil {
			return "Kanal notifikasi belum dikonfigurasi."
		}
		typ := strings.ToLower(strings.TrimSpace(args))
		if typ == "" {
			typ = "daily"
		}
		if t.notifier.TestNotification(ctx, typ, t.useCase.Now()) {
			return fmt.Sprintf("Pesan uji '%s' berhasil dikirim.", typ)
		}
		return fmt.Sprintf("Pesan uji '%s' gagal dikirim. Gunakan /test daily atau /test critical.", typ)

	default:
		return "Perintah tidak dikenal. Gunakan /help untuk melihat daftar perintah."
	}
}

// handleTreeCommand processes the /pohon [id] command
func (t *TelegramBot) handleTreeCommand(id string) string {
	if id == "" {
		return "Sebutkan id temuan. Contoh: /pohon T-001"
	}

	s, err := t.useCase.GetPrediction(id)
	if err != nil {
		log.WithError(err).Warnf("Error fetching finding %s", id)
		return fmt.Sprintf("Temuan '%s' tidak ditemukan. Gunakan /kritis untuk melihat daftar.", id)
	}
	return t.useCase.FormatPredictionInfo(s)
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(ctx context.Context, text string) string {
	reply, err := t.useCase.HandleNaturalLanguageQuery(ctx, text)
	if err != nil {
		log.WithError(err).Error("Error handling free-text query")
		return "Perintah tidak dikenali. Gunakan /help untuk melihat daftar perintah."
	}
	return reply
}
