package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/c360/sensorstore/errors"
)

// Entries are stored as small hashes so the sliding flag survives alongside
// the payload; a read of a sliding entry re-arms its TTL with EXPIRE.
const (
	fieldData  = "data"
	fieldSlide = "slide"
)

// RedisStrategy is the production cache strategy. The client's pool is
// process-wide and safe for concurrent use without external synchronization.
type RedisStrategy struct {
	client *redis.Client
}

// NewRedisStrategy wraps an existing Redis client.
func NewRedisStrategy(client *redis.Client) *RedisStrategy {
	return &RedisStrategy{client: client}
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*RedisStrategy, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.WrapCaching(errors.ErrCacheUnavailable, "cache", "Connect", "ping redis")
	}

	return NewRedisStrategy(client), nil
}

// Get implements Strategy
func (r *RedisStrategy) Get(ctx context.Context, key string) (string, bool, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return "", false, errors.WrapCaching(err, "cache", "Get", "read entry")
	}

	data, ok := fields[fieldData]
	if !ok {
		return "", false, nil
	}

	if minutes, _ := strconv.Atoi(fields[fieldSlide]); minutes > 0 {
		// Sliding entry: restart the expiration clock. Failure to re-arm is
		// harmless - the entry just expires on its previous schedule.
		_ = r.client.Expire(ctx, key, time.Duration(minutes)*time.Minute).Err()
	}

	return data, true, nil
}

// Set implements Strategy
func (r *RedisStrategy) Set(ctx context.Context, key, value string) error {
	return r.SetWithExpiry(ctx, key, value, DefaultTimeoutMinutes, true)
}

// SetWithExpiry implements Strategy
func (r *RedisStrategy) SetWithExpiry(ctx context.Context, key, value string, timeoutMinutes int, sliding bool) error {
	if timeoutMinutes <= 0 {
		timeoutMinutes = DefaultTimeoutMinutes
	}

	slide := 0
	if sliding {
		slide = timeoutMinutes
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fieldData, value, fieldSlide, slide)
	pipe.Expire(ctx, key, time.Duration(timeoutMinutes)*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapCaching(err, "cache", "SetWithExpiry", "write entry")
	}
	return nil
}

// Remove implements Strategy
func (r *RedisStrategy) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.WrapCaching(err, "cache", "Remove", "delete entry")
	}
	return nil
}

// Ping verifies the backend is reachable, for health checks.
func (r *RedisStrategy) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.WrapCaching(errors.ErrCacheUnavailable, "cache", "Ping", "ping redis")
	}
	return nil
}

// Close releases the client's connection pool.
func (r *RedisStrategy) Close() error {
	return r.client.Close()
}
