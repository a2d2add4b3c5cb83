package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/robfig/cron/v3"

	"github.com/ulpfield/hazard-bot/internal/app"
	"github.com/ulpfield/hazard-bot/internal/config"
	"github.com/ulpfield/hazard-bot/internal/usecases"
)

func main() {
	log.Info("Starting Hazard Notifier...")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	if a.Notifier == nil {
		log.Fatal("No notification channel configured, check CHANNEL and its credentials")
	}

	// Run a sync immediately on startup
	if err := a.Findings.RefreshFindings(); err != nil {
		log.WithError(err).Warn("Initial finding refresh failed")
	}

	c := cron.New(cron.WithLocation(cfg.Location()))
	if err := scheduleJobs(ctx, c, a, cfg); err != nil {
		log.WithError(err).Fatal("Failed to set up scheduler")
	}

	c.Start()
	<-ctx.Done()

	log.Info("Stopping scheduler...")
	<-c.Stop().Done()
}

// scheduleJobs registers the sheet sync, critical sweep and daily digest jobs
func scheduleJobs(ctx context.Context, c *cron.Cron, a *app.App, cfg *config.Config) error {
	dailySpec, err := usecases.DailyCronSpec(cfg.DailyNotifyTime)
	if err != nil {
		return fmt.Errorf("invalid DAILY_NOTIFY_TIME: %w", err)
	}

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"sheet sync", cfg.SheetSyncSpec, func() {
			if err := a.Findings.RefreshFindings(); err != nil {
				log.WithError(err).Error("Scheduled finding refresh failed")
			}
		}},
		{"critical sweep", cfg.CriticalSweepSpec, func() {
			findings, err := a.Findings.GetFindings("")
			if err != nil {
				log.WithError(err).Error("Failed to load findings for critical sweep")
				return
			}
			sent := a.Notifier.CheckCriticalFindings(ctx, findings, a.Findings.Now())
			log.WithField("sent", sent).Info("Critical sweep finished")
		}},
		{"daily digest", dailySpec, func() {
			findings, err := a.Findings.GetFindings("")
			if err != nil {
				log.WithError(err).Error("Failed to load findings for daily digest")
				return
			}
			a.Notifier.RunDailyTick(ctx, findings, a.Findings.Now())
		}},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		log.WithField("spec", job.spec).Infof("Scheduled %s", job.name)
	}
	return nil
}
