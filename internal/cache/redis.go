package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	busesKey      = "cache:buses"
	schedulesKey  = "cache:schedules"
	revokedPrefix = "revoked:"
)

type RedisCache struct {
	client      *redis.Client
	listingsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, listingsTTL time.Duration) *RedisCache {
	return NewRedisCacheFromClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		listingsTTL,
	)
}

func NewRedisCacheFromClient(client *redis.Client, listingsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, listingsTTL: listingsTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetBuses returns nil without error on a cache miss.
func (c *RedisCache) GetBuses(ctx context.Context) ([]domain.Bus, error) {
	var buses []domain.Bus
	ok, err := c.get(ctx, busesKey, &buses)
	if err != nil || !ok {
		return nil, err
	}
	return buses, nil
}

func (c *RedisCache) SetBuses(ctx context.Context, buses []domain.Bus) error {
	return c.set(ctx, busesKey, buses)
}

// GetSchedules returns nil without error on a cache miss.
func (c *RedisCache) GetSchedules(ctx context.Context) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	ok, err := c.get(ctx, schedulesKey, &schedules)
	if err != nil || !ok {
		return nil, err
	}
	return schedules, nil
}

func (c *RedisCache) SetSchedules(ctx context.Context, schedules []domain.Schedule) error {
	return c.set(ctx, schedulesKey, schedules)
}

func (c *RedisCache) InvalidateListings(ctx context.Context) error {
	return c.client.Del(ctx, busesKey, schedulesKey).Err()
}

// Revoke blacklists a token id until its natural expiry.
func (c *RedisCache) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func (c *RedisCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.listingsTTL).Err()
}
