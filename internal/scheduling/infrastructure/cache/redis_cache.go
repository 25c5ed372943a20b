// Package cache provides Redis-backed caching for computed availability.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lektora/lektora/internal/scheduling/domain"
)

const (
	slotKeyPrefix   = "lektora:availability:"
	calendarSetKey  = "lektora:availability:calendar:"
	defaultSlotsTTL = 5 * time.Minute
)

// RedisAvailabilityCache stores computed slot lists in Redis with a short
// TTL. Every cached key is tracked in a per-calendar set so a calendar write
// can drop all of its windows at once.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisAvailabilityCache creates a Redis availability cache. A zero ttl
// falls back to the default.
func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = defaultSlotsTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl, logger: logger}
}

type cachedSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// GetSlots returns the cached slots for a key. Any Redis or decode failure
// is treated as a miss.
func (c *RedisAvailabilityCache) GetSlots(ctx context.Context, key string) ([]domain.Slot, bool) {
	data, err := c.client.Get(ctx, slotKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("availability cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var cached []cachedSlot
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("availability cache entry malformed, dropping", "key", key, "error", err)
		c.client.Del(ctx, slotKeyPrefix+key)
		return nil, false
	}

	slots := make([]domain.Slot, len(cached))
	for i, s := range cached {
		slots[i] = domain.Slot{Start: s.Start, End: s.End}
	}
	return slots, true
}

// SetSlots caches a computed slot list. Failures are logged and ignored; the
// next lookup simply recomputes.
func (c *RedisAvailabilityCache) SetSlots(ctx context.Context, key string, slots []domain.Slot) {
	cached := make([]cachedSlot, len(slots))
	for i, s := range slots {
		cached[i] = cachedSlot{Start: s.Start, End: s.End}
	}
	data, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("availability cache encode failed", "key", key, "error", err)
		return
	}

	calendarID := calendarOf(key)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, slotKeyPrefix+key, data, c.ttl)
	pipe.SAdd(ctx, calendarSetKey+calendarID, key)
	pipe.Expire(ctx, calendarSetKey+calendarID, c.ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("availability cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached window for a calendar.
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, calendarID string) error {
	setKey := calendarSetKey + calendarID
	keys, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list cached windows for calendar %s: %w", calendarID, err)
	}

	toDelete := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		toDelete = append(toDelete, slotKeyPrefix+key)
	}
	toDelete = append(toDelete, setKey)
	if err := c.client.Del(ctx, toDelete...).Err(); err != nil {
		return fmt.Errorf("invalidate availability cache for calendar %s: %w", calendarID, err)
	}
	return nil
}

// calendarOf extracts the calendar ID from a cache key. Keys are built as
// "<calendarID>|<from>|<to>|<minutes>".
func calendarOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i]
		}
	}
	return key
}
