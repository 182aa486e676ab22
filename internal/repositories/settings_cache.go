// internal/repositories/settings_cache.go
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/models"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// CachedSettings is a read-through Redis cache in front of platform settings.
// Redis failures degrade to the underlying reader.
type CachedSettings struct {
	next   SettingsReader
	client *redis.Client
	ttl    time.Duration
}

func NewCachedSettings(next SettingsReader, client *redis.Client, ttl time.Duration) *CachedSettings {
	return &CachedSettings{next: next, client: client, ttl: ttl}
}

func settingsCacheKey(category, key string) string {
	return fmt.Sprintf("settings:%s:%s", category, key)
}

func (c *CachedSettings) GetSetting(ctx context.Context, category, key string) (*models.PlatformSetting, error) {
	cacheKey := settingsCacheKey(category, key)

	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var setting models.PlatformSetting
		if jsonErr := json.Unmarshal(raw, &setting); jsonErr == nil {
			return &setting, nil
		}
		logrus.WithField("key", cacheKey).Warn("Discarding unreadable cached setting")
	case !errors.Is(err, redis.Nil):
		logrus.WithError(err).WithField("key", cacheKey).Warn("Settings cache unavailable")
	}

	setting, err := c.next.GetSetting(ctx, category, key)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(setting); err == nil {
		if err := c.client.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
			logrus.WithError(err).WithField("key", cacheKey).Warn("Failed to cache setting")
		}
	}

	return setting, nil
}

// Invalidate drops the cached copy so the next read hits the store.
func (c *CachedSettings) Invalidate(ctx context.Context, category, key string) error {
	return c.client.Del(ctx, settingsCacheKey(category, key)).Err()
}
