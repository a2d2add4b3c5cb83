package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Channel names accepted in CHANNEL
const (
	ChannelWhatsApp = "whatsapp"
	ChannelTelegram = "telegram"
)

type Config struct {
	// Storage
	DBPath string

	// Scheduling
	Timezone          string
	DailyNotifyTime   string
	CriticalSweepSpec string
	SheetSyncSpec     string

	// Spreadsheet source
	SheetURL            string
	SheetTimeoutSeconds int

	// Delivery
	Channel                string
	SendTimeoutSeconds     int
	WhatsAppAPIURL         string
	WhatsAppToken          string
	WhatsAppTarget         string
	WhatsAppTimeoutSeconds int
	TelegramBotToken       string
	TelegramChatID         int64

	// Optional integrations
	OpenAIAPIKey  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP
	HTTPPort string
	GinMode  string
}

// Load reads an optional .env file and then the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}

	return &Config{
		DBPath:                 getEnv("DB_PATH", ""),
		Timezone:               getEnv("TIMEZONE", "Asia/Jakarta"),
		DailyNotifyTime:        getEnv("DAILY_NOTIFY_TIME", "07:00"),
		CriticalSweepSpec:      getEnv("CRITICAL_SWEEP_SPEC", "*/30 * * * *"),
		SheetSyncSpec:          getEnv("SHEET_SYNC_SPEC", "0 * * * *"),
		SheetURL:               getEnv("SHEET_URL", ""),
		SheetTimeoutSeconds:    getEnvInt("SHEET_TIMEOUT_SECONDS", 30),
		Channel:                strings.ToLower(getEnv("CHANNEL", ChannelWhatsApp)),
		SendTimeoutSeconds:     getEnvInt("SEND_TIMEOUT_SECONDS", 30),
		WhatsAppAPIURL:         getEnv("WHATSAPP_API_URL", ""),
		WhatsAppToken:          getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppTarget:         getEnv("WHATSAPP_TARGET", ""),
		WhatsAppTimeoutSeconds: getEnvInt("WHATSAPP_TIMEOUT_SECONDS", 15),
		TelegramBotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:         getEnvInt64("TELEGRAM_CHAT_ID", 0),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		GinMode:                getEnv("GIN_MODE", "release"),
	}
}

// Location resolves Timezone, falling back to local time
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.WithError(err).Warnf("Unknown timezone %q, using local time", c.Timezone)
		return time.Local
	}
	return loc
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c *Config) SheetTimeout() time.Duration {
	return time.Duration(c.SheetTimeoutSeconds) * time.Second
}

func (c *Config) WhatsAppTimeout() time.Duration {
	return time.Duration(c.WhatsAppTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
