package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront-api/internal/config"
	"github.com/storefront-api/internal/domain"
)

const defaultPrefix = "storefront:pref:"

// NewClient connects to cfg.RedisAddr and checks the connection.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// PreferenceStore keeps per-client preferences in Redis. Each Set refreshes the TTL,
// so preferences of active clients never expire.
type PreferenceStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewPreferenceStore(client redis.Cmdable, prefix string, ttl time.Duration) *PreferenceStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &PreferenceStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *PreferenceStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("preference %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
