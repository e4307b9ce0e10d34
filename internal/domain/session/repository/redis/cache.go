package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

// Cache stores connected session lists per user. Every key written for a
// user is recorded in a registry set so invalidation never needs a pattern scan.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a Redis-backed session cache
func NewCache(client *redis.Client, cfg *config.SessionConfig) deps.Cache {
	return &Cache{client: client, ttl: cfg.CacheTTL}
}

// ConnectedKey is the cache key of a user's connected session list
func ConnectedKey(userID uint) string {
	return fmt.Sprintf("sessions:user:%d:connected", userID)
}

// RegistryKey is the set of cache keys held for a user
func RegistryKey(userID uint) string {
	return fmt.Sprintf("sessions:user:%d:keys", userID)
}

// GetConnected returns the cached list; the bool is false on a miss
func (c *Cache) GetConnected(ctx context.Context, userID uint) ([]entities.Session, bool, error) {
	raw, err := c.client.Get(ctx, ConnectedKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session cache: %w", err)
	}

	var sessions []entities.Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, false, fmt.Errorf("failed to decode session cache: %w", err)
	}

	return sessions, true, nil
}

// SetConnected stores the list and registers its key
func (c *Cache) SetConnected(ctx context.Context, userID uint, sessions []entities.Session) error {
	if sessions == nil {
		sessions = []entities.Session{}
	}

	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode session cache: %w", err)
	}

	key := ConnectedKey(userID)
	registry := RegistryKey(userID)

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, c.ttl)
		pipe.SAdd(ctx, registry, key)
		pipe.Expire(ctx, registry, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}

	return nil
}

// InvalidateUser deletes every registered key of the user and the registry
func (c *Cache) InvalidateUser(ctx context.Context, userID uint) error {
	registry := RegistryKey(userID)

	keys, err := c.client.SMembers(ctx, registry).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read cache registry: %w", err)
	}

	keys = append(keys, ConnectedKey(userID), registry)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session cache: %w", err)
	}

	return nil
}
