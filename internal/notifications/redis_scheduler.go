package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const reminderQueueKey = "lektora:reminders:due"

// RedisScheduler keeps pending reminders in a Redis sorted set scored by the
// send time. Scheduling is an upsert: a booking appears at most once in the
// queue, at its latest send time.
type RedisScheduler struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisScheduler creates a Redis-backed reminder scheduler.
func NewRedisScheduler(client *redis.Client, logger *slog.Logger) *RedisScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisScheduler{client: client, logger: logger}
}

// Schedule queues (or moves) the reminder for a booking.
func (s *RedisScheduler) Schedule(ctx context.Context, bookingID uuid.UUID, sendAt time.Time) error {
	err := s.client.ZAdd(ctx, reminderQueueKey, redis.Z{
		Score:  float64(sendAt.Unix()),
		Member: bookingID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	s.logger.Debug("reminder scheduled",
		"booking_id", bookingID,
		"send_at", sendAt,
	)
	return nil
}

// Cancel removes the reminder for a booking. Cancelling a booking that is not
// queued is not an error.
func (s *RedisScheduler) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	if err := s.client.ZRem(ctx, reminderQueueKey, bookingID.String()).Err(); err != nil {
		return fmt.Errorf("cancel reminder: %w", err)
	}
	return nil
}

// PopDue atomically removes and returns the bookings whose reminders are due
// at or before now. Members that fail to parse as booking IDs are dropped and
// logged; a poisoned member must not wedge the queue.
func (s *RedisScheduler) PopDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	max := fmt.Sprintf("%d", now.Unix())
	members, err := s.client.ZRangeByScore(ctx, reminderQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	removable := make([]interface{}, len(members))
	for i, m := range members {
		removable[i] = m
	}
	if err := s.client.ZRem(ctx, reminderQueueKey, removable...).Err(); err != nil {
		return nil, fmt.Errorf("drain due reminders: %w", err)
	}

	due := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			s.logger.Warn("dropping malformed reminder queue member", "member", m)
			continue
		}
		due = append(due, id)
	}
	return due, nil
}
