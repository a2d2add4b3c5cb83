package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ulpfield/hazard-bot/internal/entities"
)

// LogDeliveryGuard answers "already sent today" from the notification log.
// Marking is a no-op because the log append is the mark.
type LogDeliveryGuard struct {
	log *SQLiteNotificationLog
}

func NewLogDeliveryGuard(l *SQLiteNotificationLog) *LogDeliveryGuard {
	return &LogDeliveryGuard{log: l}
}

func (g *LogDeliveryGuard) AlreadySent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) (bool, error) {
	return g.log.HasSentSince(ctx, typ, key, startOfDay(day))
}

func (g *LogDeliveryGuard) MarkSent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) error {
	return nil
}

// RedisDeliveryGuard keeps one short-lived key per delivery and day
type RedisDeliveryGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeliveryGuard connects to Redis and verifies the connection
func NewRedisDeliveryGuard(ctx context.Context, addr, password string, db int) (*RedisDeliveryGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisDeliveryGuardWithClient(client), nil
}

// NewRedisDeliveryGuardWithClient wraps an existing client
func NewRedisDeliveryGuardWithClient(client *redis.Client) *RedisDeliveryGuard {
	return &RedisDeliveryGuard{client: client, ttl: 24 * time.Hour}
}

func (g *RedisDeliveryGuard) Close() error {
	return g.client.Close()
}

func (g *RedisDeliveryGuard) AlreadySent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) (bool, error) {
	count, err := g.client.Exists(ctx, DeliveryKey(typ, key, day)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

func (g *RedisDeliveryGuard) MarkSent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) error {
	return g.client.Set(ctx, DeliveryKey(typ, key, day), "1", g.ttl).Err()
}

// DeliveryKey is the Redis key for one delivery on one calendar day
func DeliveryKey(typ entities.NotificationType, key string, day time.Time) string {
	if key == "" {
		key = "all"
	}
	return fmt.Sprintf("hazard:%s:%s:%s", typ, key, day.Format("2006-01-02"))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
