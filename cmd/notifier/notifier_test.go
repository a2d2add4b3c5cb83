package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulpfield/hazard-bot/internal/app"
	"github.com/ulpfield/hazard-bot/internal/config"
)

func newTestApp(t *testing.T) (*app.App, *config.Config) {
	cfg := &config.Config{
		DBPath:            filepath.Join(t.TempDir(), "findings.db"),
		Timezone:          "Asia/Jakarta",
		DailyNotifyTime:   "07:00",
		CriticalSweepSpec: "*/30 * * * *",
		SheetSyncSpec:     "0 * * * *",
		Channel:           config.ChannelWhatsApp,
		WhatsAppAPIURL:    "http://127.0.0.1:1/send",
		WhatsAppTarget:    "group-1",
	}
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, cfg
}

func TestScheduleJobs(t *testing.T) {
	a, cfg := newTestApp(t)
	c := cron.New(cron.WithLocation(cfg.Location()))

	require.NoError(t, scheduleJobs(context.Background(), c, a, cfg))
	assert.Len(t, c.Entries(), 3)
}

func TestScheduleJobsRejectsBadConfig(t *testing.T) {
	a, cfg := newTestApp(t)

	cfg.DailyNotifyTime = "7 pagi"
	assert.Error(t, scheduleJobs(context.Background(), cron.New(), a, cfg))

	cfg.DailyNotifyTime = "07:00"
	cfg.CriticalSweepSpec = "every half hour"
	assert.Error(t, scheduleJobs(context.Background(), cron.New(), a, cfg))
}
