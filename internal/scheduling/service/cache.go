package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"banya/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache is a short-lived Redis cache for availability responses.
// It is strictly advisory: every method degrades to a no-op when Redis is
// not configured, and errors are logged, never propagated.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl, log: log}
}

func availabilityKey(locationUID, serviceUID, targetDate string) string {
	return fmt.Sprintf("schedule:availability:%s:%s:%s", locationUID, serviceUID, targetDate)
}

// Get returns the cached slot list, or (nil, false) on miss or any failure.
func (c *AvailabilityCache) Get(ctx context.Context, locationUID, serviceUID, targetDate string) ([]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, availabilityKey(locationUID, serviceUID, targetDate)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("Availability cache read failed", "error", err)
		}
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.log.Warn("Availability cache entry is corrupt, ignoring", "error", err)
		return nil, false
	}
	return slots, true
}

func (c *AvailabilityCache) Set(ctx context.Context, locationUID, serviceUID, targetDate string, slots []string) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, availabilityKey(locationUID, serviceUID, targetDate), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Availability cache write failed", "error", err)
	}
}

// Invalidate drops the cached entry for one location+service+date after a
// booking changes occupancy.
func (c *AvailabilityCache) Invalidate(ctx context.Context, locationUID, serviceUID, targetDate string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, availabilityKey(locationUID, serviceUID, targetDate)).Err(); err != nil {
		c.log.Warn("Availability cache invalidation failed", "error", err)
	}
}
