// Package lock provides a Redis-backed run lock so that only one replica
// fires the scheduled alert job for a given day.
package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis acquires keys with SET NX. Keys are never released; they expire after
// their TTL.
type Redis struct {
	client *redis.Client
	owner  string
}

// NewRedis wraps an existing client. The owner string is stored as the key's
// value for operators inspecting Redis.
func NewRedis(client *redis.Client) *Redis {
	host, _ := os.Hostname()
	return &Redis{client: client, owner: fmt.Sprintf("%s:%d", host, os.Getpid())}
}

// Connect parses a redis:// URL and verifies the server responds.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// TryLock reports whether this process now holds key.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, r.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

// Holder returns the owner recorded for key, or "" when it is free.
func (r *Redis) Holder(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}
