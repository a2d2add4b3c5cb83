package api

import (
	"context"
	"fmt"

	"github.com/apex/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxCaptionRunes is Telegram's limit for photo captions
const maxCaptionRunes = 1024

// chattableSender is the part of *tgbotapi.BotAPI the sender needs
type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender delivers notifications to one Telegram chat
type TelegramSender struct {
	bot    chattableSender
	chatID int64
}

// NewTelegramSender creates a channel sender for chatID
func NewTelegramSender(bot *tgbotapi.BotAPI, chatID int64) (*TelegramSender, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is not configured")
	}
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

// Send posts the message, as a photo caption when an image is given.
// Messages longer than a caption are sent as photo followed by text.
func (s *TelegramSender) Send(ctx context.Context, message, imageURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if imageURL == "" {
		return sendMarkdown(s.bot, tgbotapi.NewMessage(s.chatID, message))
	}

	photo := tgbotapi.NewPhoto(s.chatID, tgbotapi.FileURL(imageURL))
	fits := len([]rune(message)) <= maxCaptionRunes
	if fits {
		photo.Caption = message
		photo.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := s.bot.Send(photo); err != nil {
		// a broken photo link should not swallow the alert text
		log.WithError(err).Warn("Failed to send telegram photo, falling back to text")
		fits = false
	}
	if !fits {
		return sendMarkdown(s.bot, tgbotapi.NewMessage(s.chatID, message))
	}
	return nil
}

// sendMarkdown renders *bold* markers as Markdown. Finding text can carry stray
// markup characters, so a rejected message is resent as plain text.
func sendMarkdown(bot chattableSender, msg tgbotapi.MessageConfig) error {
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	if err == nil {
		return nil
	}
	log.WithError(err).Warn("Telegram rejected markdown, resending as plain text")

	msg.ParseMode = ""
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
