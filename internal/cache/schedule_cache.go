// Package cache provides a Redis-backed read-through cache for weekly
// schedules, the one read-mostly dataset the engine may serve slightly
// stale. Capacity state is never cached; the database stays the single
// arbiter of capacity truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

var errCacheMiss = errors.New("cache miss")

// Store is the minimal key-value surface the schedule cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a go-redis client as a Store.
func NewRedisStore(client *redis.Client) Store {
	return redisStore{client: client}
}

func (s redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", errCacheMiss
	}
	return val, err
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s redisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

type scheduleSource interface {
	GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error)
}

// ScheduleCache is a read-through decorator over the catalog's schedule
// reads. Cache failures are soft: they are logged and the inner source is
// consulted, so a Redis outage degrades to direct database reads.
type ScheduleCache struct {
	inner  scheduleSource
	store  Store
	ttl    time.Duration
	logger *log.Logger
}

const defaultScheduleTTL = 5 * time.Minute

func NewScheduleCache(inner scheduleSource, store Store, ttl time.Duration, logger *log.Logger) *ScheduleCache {
	if ttl <= 0 {
		ttl = defaultScheduleTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ScheduleCache{inner: inner, store: store, ttl: ttl, logger: logger}
}

type cachedEntry struct {
	Weekday int `json:"weekday"`
	Open    int `json:"open"`
	Close   int `json:"close"`
}

func (c *ScheduleCache) GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error) {
	key := scheduleKey(resourceID)

	raw, err := c.store.Get(ctx, key)
	if err == nil {
		var cached []cachedEntry
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			entries := make([]domain.ScheduleEntry, 0, len(cached))
			for _, e := range cached {
				entries = append(entries, domain.ScheduleEntry{
					Weekday: time.Weekday(e.Weekday),
					Open:    domain.TimeOfDay(e.Open),
					Close:   domain.TimeOfDay(e.Close),
				})
			}
			return entries, nil
		}
		c.logger.Printf("WARN: schedule cache entry for %s is malformed, refetching", resourceID)
	} else if err != errCacheMiss {
		c.logger.Printf("WARN: schedule cache read failed: %v", err)
	}

	entries, err := c.inner.GetWeeklySchedule(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	cached := make([]cachedEntry, 0, len(entries))
	for _, e := range entries {
		cached = append(cached, cachedEntry{Weekday: int(e.Weekday), Open: int(e.Open), Close: int(e.Close)})
	}
	payload, err := json.Marshal(cached)
	if err == nil {
		if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
			c.logger.Printf("WARN: schedule cache write failed: %v", err)
		}
	}

	return entries, nil
}

// Invalidate drops the cached schedule for a resource. Called by the catalog
// admin after schedule writes.
func (c *ScheduleCache) Invalidate(ctx context.Context, resourceID string) {
	if err := c.store.Del(ctx, scheduleKey(resourceID)); err != nil {
		c.logger.Printf("WARN: schedule cache invalidation failed: %v", err)
	}
}

func scheduleKey(resourceID string) string {
	return "schedule:" + resourceID
}
