// Package cache wraps the redis client behind the small keyed-TTL surface
// the rest of the service needs: staged pending payments and OTP entries.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is absent or already expired.
var ErrNotFound = errors.New("cache: key not found")

type Conf struct {
	client *redis.Client
}

// NewConf connects to redis using REDIS_ADDR / REDIS_PASSWORD and verifies
// the connection with a bounded ping.
func NewConf() (*Conf, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Conf{client: client}, nil
}

func NewConfWithClient(client *redis.Client) *Conf {
	return &Conf{client: client}
}

func (c *Conf) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (c *Conf) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache get %q: %w", key, err)
	}
	return v, nil
}

// GetDel atomically fetches and deletes a key. The webhook path relies on
// this so two concurrent deliveries of the same event cannot both observe
// the staged record.
func (c *Conf) GetDel(ctx context.Context, key string) (string, error) {
	v, err := c.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache getdel %q: %w", key, err)
	}
	return v, nil
}

func (c *Conf) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache del %q: %w", key, err)
	}
	return nil
}
