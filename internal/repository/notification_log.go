package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/ulpfield/hazard-bot/internal/entities"
)

// sentAtLayout is fixed width so stored values compare correctly as text
const sentAtLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteNotificationLog is the append-only delivery log
type SQLiteNotificationLog struct {
	db *sql.DB
}

// NewSQLiteNotificationLog wraps a database whose schema was created by NewSQLiteFindingRepository
func NewSQLiteNotificationLog(db *sql.DB) *SQLiteNotificationLog {
	return &SQLiteNotificationLog{db: db}
}

// LogNotification appends one dispatch attempt
func (l *SQLiteNotificationLog) LogNotification(ctx context.Context, entry entities.NotificationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO notification_log(id, type, tree_id, tree_count, message, sent_at, status)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		string(entry.Type),
		entry.TreeID,
		entry.TreeCount,
		entry.Message,
		entry.SentAt.UTC().Format(sentAtLayout),
		string(entry.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to append notification log %s: %w", entry.Type, err)
	}

	log.WithFields(log.Fields{
		"type":   entry.Type,
		"tree":   entry.TreeID,
		"count":  entry.TreeCount,
		"status": entry.Status,
	}).Info("Notification logged")
	return nil
}

// ListRecent returns the newest entries first
func (l *SQLiteNotificationLog) ListRecent(ctx context.Context, limit int) ([]entities.NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, type, tree_id, tree_count, message, sent_at, status
		FROM notification_log
		ORDER BY sent_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification log: %w", err)
	}
	defer rows.Close()

	var result []entities.NotificationLogEntry
	for rows.Next() {
		var e entities.NotificationLogEntry
		var typ, sentAt, status string
		if err := rows.Scan(&e.ID, &typ, &e.TreeID, &e.TreeCount, &e.Message, &sentAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Type = entities.NotificationType(typ)
		e.Status = entities.DeliveryStatus(status)
		if t, err := time.Parse(sentAtLayout, sentAt); err == nil {
			e.SentAt = t
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// HasSentSince reports whether a successful delivery of this type (and tree, when given)
// was logged at or after since
func (l *SQLiteNotificationLog) HasSentSince(ctx context.Context, typ entities.NotificationType, treeID string, since time.Time) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notification_log
		WHERE type = ? AND tree_id = ? AND status = ? AND sent_at >= ?`,
		string(typ), treeID, string(entities.DeliverySent), since.UTC().Format(sentAtLayout),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check notification log: %w", err)
	}
	return count > 0, nil
}
