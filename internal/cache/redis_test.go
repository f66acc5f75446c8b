package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func unreachableCache() *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCacheFromClient(client, time.Minute)
}

func TestRedisCache_Unreachable(t *testing.T) {
	c := unreachableCache()
	defer c.Close()
	ctx := context.Background()

	buses, err := c.GetBuses(ctx)
	assert.Error(t, err)
	assert.Nil(t, buses)

	_, err = c.IsRevoked(ctx, "jti")
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}

func TestRedisCache_RevokeExpiredTokenIsNoop(t *testing.T) {
	c := unreachableCache()
	defer c.Close()

	err := c.Revoke(context.Background(), "jti", time.Now().Add(-time.Minute))
	assert.NoError(t, err)
}
