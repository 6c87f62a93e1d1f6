package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultAvailabilityTTL = 30 * time.Second
	DefaultRetiredTTL      = 14 * 24 * time.Hour
)

func availabilityKey(eventID uuid.UUID) string {
	return fmt.Sprintf("seats:%s", eventID.String())
}

func retiredKey(sessionKey string) string {
	return "session:retired:" + sessionKey
}

// RedisAvailability caches remaining seat counts per event.
type RedisAvailability struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisAvailability(client redis.Cmdable, ttl time.Duration) *RedisAvailability {
	if ttl <= 0 {
		ttl = DefaultAvailabilityTTL
	}
	return &RedisAvailability{client: client, ttl: ttl}
}

func (c *RedisAvailability) GetAvailability(ctx context.Context, eventID uuid.UUID) (int, bool, error) {
	val, err := c.client.Get(ctx, availabilityKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get availability: %w", err)
	}

	remaining, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("decode cached availability %q: %w", val, err)
	}
	return remaining, true, nil
}

func (c *RedisAvailability) SetAvailability(ctx context.Context, eventID uuid.UUID, remaining int) error {
	if err := c.client.Set(ctx, availabilityKey(eventID), remaining, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set availability: %w", err)
	}
	return nil
}

func (c *RedisAvailability) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	if err := c.client.Del(ctx, availabilityKey(eventID)).Err(); err != nil {
		return fmt.Errorf("redis invalidate availability: %w", err)
	}
	return nil
}

// RedisSessions remembers retired session keys until ttl passes.
type RedisSessions struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisSessions(client redis.Cmdable, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = DefaultRetiredTTL
	}
	return &RedisSessions{client: client, ttl: ttl}
}

func (s *RedisSessions) Retire(ctx context.Context, sessionKey string) error {
	if err := s.client.Set(ctx, retiredKey(sessionKey), 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis retire session: %w", err)
	}
	return nil
}

func (s *RedisSessions) IsRetired(ctx context.Context, sessionKey string) (bool, error) {
	n, err := s.client.Exists(ctx, retiredKey(sessionKey)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check session: %w", err)
	}
	return n > 0, nil
}
