package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/metrics"
	"github.com/ulpfield/hazard-bot/internal/prediction"
)

// Sender delivers a text message, with an optional image, to one external channel
type Sender interface {
	Send(ctx context.Context, message, imageURL string) error
}

// NotificationLogStore is the append-only delivery log
type NotificationLogStore interface {
	LogNotification(ctx context.Context, entry entities.NotificationLogEntry) error
}

// DeliveryGuard makes delivery idempotent per calendar day
type DeliveryGuard interface {
	AlreadySent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) (bool, error)
	MarkSent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) error
}

// NotificationConfig is injected at construction; nothing here is global
type NotificationConfig struct {
	DailyTime   string        // "HH:MM" in the host's configured timezone
	SendTimeout time.Duration // zero means no deadline on the channel call
}

// NotificationUseCase formats eligible findings and performs the send and log side effects
type NotificationUseCase struct {
	sender Sender
	store  NotificationLogStore
	guard  DeliveryGuard
	cfg    NotificationConfig
}

// NewNotificationUseCase creates a dispatcher. guard may be nil to disable deduplication.
func NewNotificationUseCase(sender Sender, store NotificationLogStore, guard DeliveryGuard, cfg NotificationConfig) *NotificationUseCase {
	return &NotificationUseCase{
		sender: sender,
		store:  store,
		guard:  guard,
		cfg:    cfg,
	}
}

// Dispatch hands one message to the channel. It never panics or returns an error;
// the result tells the caller whether delivery succeeded.
func (uc *NotificationUseCase) Dispatch(ctx context.Context, message, imageURL string) bool {
	if uc.sender == nil {
		log.Warn("No notification channel configured, message dropped")
		return false
	}
	if uc.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.SendTimeout)
		defer cancel()
	}

	if err := uc.sender.Send(ctx, message, imageURL); err != nil {
		log.WithError(err).Warn("Failed to dispatch notification")
		return false
	}
	return true
}

// LogNotification appends a log entry, reporting success as a boolean
func (uc *NotificationUseCase) LogNotification(ctx context.Context, entry entities.NotificationLogEntry) bool {
	metrics.NotificationsTotal.WithLabelValues(string(entry.Type), string(entry.Status)).Inc()
	if uc.store == nil {
		return false
	}
	if err := uc.store.LogNotification(ctx, entry); err != nil {
		log.WithError(err).Errorf("Failed to log %s notification", entry.Type)
		return false
	}
	return true
}

func deliveryStatus(ok bool) entities.DeliveryStatus {
	if ok {
		return entities.DeliverySent
	}
	return entities.DeliveryFailed
}

// SendCriticalNotification sends the immediate alert for one finding and logs the attempt
func (uc *NotificationUseCase) SendCriticalNotification(ctx context.Context, f entities.InspectionFinding, now time.Time) bool {
	message := BuildCriticalMessage(f, now)
	ok := uc.Dispatch(ctx, message, f.PhotoURL())

	uc.LogNotification(ctx, entities.NotificationLogEntry{
		Type:    entities.NotificationCritical,
		TreeID:  f.ID,
		Message: message,
		SentAt:  now,
		Status:  deliveryStatus(ok),
	})
	log.WithFields(log.Fields{"tree": f.ID, "sent": ok}).Info("Critical notification processed")
	return ok
}

// SendDailyNotification sends the digest for the given findings and logs the attempt
func (uc *NotificationUseCase) SendDailyNotification(ctx context.Context, findings []entities.InspectionFinding, now time.Time) bool {
	urgent := SelectForDailyChannel(findings, now)
	message := BuildDailyDigest(findings, now)
	ok := uc.Dispatch(ctx, message, "")

	uc.LogNotification(ctx, entities.NotificationLogEntry{
		Type:      entities.NotificationDaily,
		TreeCount: len(urgent),
		Message:   message,
		SentAt:    now,
		Status:    deliveryStatus(ok),
	})
	log.WithFields(log.Fields{"urgent": len(urgent), "sent": ok}).Info("Daily notification processed")
	return ok
}

// CheckCriticalFindings alerts every critical finding not yet alerted today and
// returns how many alerts went out
func (uc *NotificationUseCase) CheckCriticalFindings(ctx context.Context, findings []entities.InspectionFinding, now time.Time) int {
	scored := Evaluate(findings, now)
	RecordLevels(scored)

	critical := RankByPriority(filterScored(scored, func(p prediction.Prediction) bool { return p.ShouldTriggerBot }))
	log.Infof("Found %d critical findings out of %d", len(critical), len(findings))

	sent := 0
	for _, s := range critical {
		if uc.alreadySent(ctx, entities.NotificationCritical, s.Finding.ID, now) {
			continue
		}
		if uc.SendCriticalNotification(ctx, s.Finding, now) {
			sent++
			uc.markSent(ctx, entities.NotificationCritical, s.Finding.ID, now)
		}
	}
	return sent
}

// RunDailyTick sends the digest when now matches the configured time and the
// digest has not gone out today. It is safe to call every minute.
func (uc *NotificationUseCase) RunDailyTick(ctx context.Context, findings []entities.InspectionFinding, now time.Time) bool {
	if !ShouldSendDailyNotification(now, uc.cfg.DailyTime) {
		return false
	}
	if uc.alreadySent(ctx, entities.NotificationDaily, "", now) {
		log.Info("Daily notification already sent today, skipping")
		return false
	}
	RecordLevels(Evaluate(findings, now))

	if !uc.SendDailyNotification(ctx, findings, now) {
		return false
	}
	uc.markSent(ctx, entities.NotificationDaily, "", now)
	return true
}

// TestNotification dispatches a synthetic message, bypassing eligibility and the log
func (uc *NotificationUseCase) TestNotification(ctx context.Context, typ string, now time.Time) bool {
	message, err := BuildTestMessage(typ, now)
	if err != nil {
		log.WithError(err).Warn("Rejected test notification")
		return false
	}
	ok := uc.Dispatch(ctx, message, "")
	log.WithFields(log.Fields{"type": typ, "sent": ok}).Info("Test notification processed")
	return ok
}

func (uc *NotificationUseCase) alreadySent(ctx context.Context, typ entities.NotificationType, key string, now time.Time) bool {
	if uc.guard == nil {
		return false
	}
	sent, err := uc.guard.AlreadySent(ctx, typ, key, now)
	if err != nil {
		// an unavailable guard must not suppress alerts
		log.WithError(err).Warnf("Delivery guard check failed for %s %s", typ, key)
		return false
	}
	return sent
}

func (uc *NotificationUseCase) markSent(ctx context.Context, typ entities.NotificationType, key string, now time.Time) {
	if uc.guard == nil {
		return
	}
	if err := uc.guard.MarkSent(ctx, typ, key, now); err != nil {
		log.WithError(err).Warnf("Failed to mark %s %s as sent", typ, key)
	}
}

// RecordLevels publishes the current per-level counts
func RecordLevels(scored []ScoredFinding) {
	for key, n := range CountByLevel(scored) {
		metrics.FindingsByLevel.WithLabelValues(string(key)).Set(float64(n))
	}
}

// ShouldSendDailyNotification reports whether now falls in the configured "HH:MM" minute.
// A malformed configured time never matches.
func ShouldSendDailyNotification(now time.Time, configuredTime string) bool {
	hour, minute, err := ParseDailyTime(configuredTime)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

// ParseDailyTime splits an "HH:MM" string
func ParseDailyTime(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid daily time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in daily time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in daily time %q", s)
	}
	return hour, minute, nil
}

// DailyCronSpec converts "HH:MM" into a five-field cron expression
func DailyCronSpec(s string) (string, error) {
	hour, minute, err := ParseDailyTime(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
