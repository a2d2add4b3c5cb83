package api

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/prediction"
	"github.com/ulpfield/hazard-bot/internal/repository"
	"github.com/ulpfield/hazard-bot/internal/usecases"
)

var botNow = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.FixedZone("WIB", 7*60*60))

type memoryRepository struct {
	findings []entities.InspectionFinding
}

func (r *memoryRepository) SaveFindings(f []entities.InspectionFinding) error { return nil }
func (r *memoryRepository) ReplaceFindings(f []entities.InspectionFinding) error { return nil }
func (r *memoryRepository) GetFindings() ([]entities.InspectionFinding, error) {
	return r.findings, nil
}
func (r *memoryRepository) GetFindingsByULP(ulp string) ([]entities.InspectionFinding, error) {
	return r.findings, nil
}
func (r *memoryRepository) GetFindingByID(id string) (entities.InspectionFinding, error) {
	for _, f := range r.findings {
		if f.ID == id {
			return f, nil
		}
	}
	return entities.InspectionFinding{}, repository.ErrFindingNotFound
}
func (r *memoryRepository) GetLastSyncTime() (time.Time, error) { return botNow, nil }
func (r *memoryRepository) Close() error                      { return nil }

type recordingSender struct {
	messages []string
}

func (s *recordingSender) Send(ctx context.Context, message, imageURL string) error {
	s.messages = append(s.messages, message)
	return nil
}

func newTestBot(sender usecases.Sender) *TelegramBot {
	repo := &memoryRepository{findings: []entities.InspectionFinding{
		{ID: "T-1", Lokasi: "Jl. Sudirman", JenisPohon: "Mahoni", ULP: "ULP Kota", Status: entities.StatusTemuan,
			PrediksiInspektur: "1 hari", TglInspeksi: botNow.AddDate(0, 0, -3).Format("2006-01-02")},
		{ID: "T-2", Lokasi: "Pasar Baru", Status: entities.StatusTemuan,
			PrediksiInspektur: "3 bulan", TglInspeksi: botNow.AddDate(0, 0, -1).Format("2006-01-02")},
	}}
	uc := usecases.NewFindingUseCase(repo, nil, nil, prediction.NewPredictor(prediction.FixedClock(botNow)))
	var notifier *usecases.NotificationUseCase
	if sender != nil {
		notifier = usecases.NewNotificationUseCase(sender, nil, nil, usecases.NotificationConfig{})
	}
	return NewTelegramBot(nil, uc, notifier)
}

func TestHandleCommand(t *testing.T) {
	bot := newTestBot(nil)
	ctx := context.Background()

	assert.Contains(t, bot.handleCommand(ctx, "help", ""), "/kritis")
	assert.Contains(t, bot.handleCommand(ctx, "start", ""), "Selamat datang")

	kritis := bot.handleCommand(ctx, "kritis", "")
	assert.Contains(t, kritis, "1 pohon SANGAT BERBAHAYA")
	assert.Contains(t, kritis, "/pohon T-1")
	assert.NotContains(t, kritis, "Pasar Baru")

	assert.Contains(t, bot.handleCommand(ctx, "prioritas", ""), "LAPORAN HARIAN")
	assert.Contains(t, bot.handleCommand(ctx, "pohon", " T-2 "), "AMAN")
	assert.Contains(t, bot.handleCommand(ctx, "pohon", "T-9"), "tidak ditemukan")
	assert.Contains(t, bot.handleCommand(ctx, "pohon", ""), "Contoh")
	assert.Contains(t, bot.handleCommand(ctx, "test", "daily"), "belum dikonfigurasi")
	assert.Contains(t, bot.handleCommand(ctx, "unknown", ""), "tidak dikenal")
}

func TestHandleTestCommand(t *testing.T) {
	sender := &recordingSender{}
	bot := newTestBot(sender)
	ctx := context.Background()

	assert.Contains(t, bot.handleCommand(ctx, "test", "critical"), "berhasil")
	assert.Contains(t, bot.handleCommand(ctx, "test", ""), "'daily' berhasil")
	assert.Contains(t, bot.handleCommand(ctx, "test", "weekly"), "gagal")
	require.Len(t, sender.messages, 2)
	assert.Contains(t, sender.messages[0], "TEST PERINGATAN KRITIS")
}

func TestHandleNonCommand(t *testing.T) {
	bot := newTestBot(nil)
	ctx := context.Background()

	assert.Contains(t, bot.handleNonCommand(ctx, "halo"), "/help")
	assert.Contains(t, bot.handleNonCommand(ctx, "cek pohon T-1"), "/help")
}

type fakeBotAPI struct {
	sent []tgbotapi.Chattable
	fail func(tgbotapi.Chattable) error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.fail != nil {
		if err := f.fail(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramSender(t *testing.T) {
	ctx := context.Background()

	api := &fakeBotAPI{}
	sender := &TelegramSender{bot: api, chatID: 42}
	require.NoError(t, sender.Send(ctx, "*teks* saja", ""))
	require.Len(t, api.sent, 1)
	text := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "*teks* saja", text.Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, text.ParseMode)

	api = &fakeBotAPI{}
	sender = &TelegramSender{bot: api, chatID: 42}
	require.NoError(t, sender.Send(ctx, "dengan foto", "https://img/1.jpg"))
	require.Len(t, api.sent, 1)
	photo := api.sent[0].(tgbotapi.PhotoConfig)
	assert.Equal(t, "dengan foto", photo.Caption)
	assert.Equal(t, tgbotapi.ModeMarkdown, photo.ParseMode)
	assert.Equal(t, tgbotapi.FileURL("https://img/1.jpg"), photo.File)

	api = &fakeBotAPI{}
	sender = &TelegramSender{bot: api, chatID: 42}
	long := strings.Repeat("x", maxCaptionRunes+1)
	require.NoError(t, sender.Send(ctx, long, "https://img/1.jpg"))
	require.Len(t, api.sent, 2)
	assert.Empty(t, api.sent[0].(tgbotapi.PhotoConfig).Caption)
	assert.Equal(t, long, api.sent[1].(tgbotapi.MessageConfig).Text)

	api = &fakeBotAPI{fail: func(c tgbotapi.Chattable) error {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			return errors.New("bad photo")
		}
		return nil
	}}
	sender = &TelegramSender{bot: api, chatID: 42}
	require.NoError(t, sender.Send(ctx, "fallback", "https://broken"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "fallback", api.sent[0].(tgbotapi.MessageConfig).Text)

	api = &fakeBotAPI{fail: func(c tgbotapi.Chattable) error {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ParseMode != "" {
			return errors.New("Bad Request: can't parse entities")
		}
		return nil
	}}
	sender = &TelegramSender{bot: api, chatID: 42}
	require.NoError(t, sender.Send(ctx, "*PERINGATAN* pohon_kritis", ""))
	require.Len(t, api.sent, 1)
	plain := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "*PERINGATAN* pohon_kritis", plain.Text)
	assert.Empty(t, plain.ParseMode)

	api = &fakeBotAPI{fail: func(tgbotapi.Chattable) error { return errors.New("down") }}
	sender = &TelegramSender{bot: api, chatID: 42}
	assert.Error(t, sender.Send(ctx, "x", ""))

	_, err := NewTelegramSender(nil, 0)
	assert.Error(t, err)
}
