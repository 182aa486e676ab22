// internal/repositories/settings_cache_test.go
package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

type countingSettings struct {
	SettingsReader
	reads int
}

func (c *countingSettings) GetSetting(ctx context.Context, category, key string) (*models.PlatformSetting, error) {
	c.reads++
	return c.SettingsReader.GetSetting(ctx, category, key)
}

func seedFee(t *testing.T, store *MemoryStore, value string) {
	t.Helper()
	require.NoError(t, store.WithinTransaction(context.Background(), func(tx Tx) error {
		return tx.UpsertSetting(&models.PlatformSetting{
			Category: models.SettingCategoryPlatform,
			Key:      models.SettingPlatformFeePercent,
			Value:    models.JSONB{"value": value},
			DataType: "decimal",
		})
	}))
}

func TestCachedSettingsReadThrough(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewMemoryStore()
	seedFee(t, store, "2.5")
	backing := &countingSettings{SettingsReader: store}
	cache := NewCachedSettings(backing, client, time.Minute)

	for i := 0; i < 3; i++ {
		setting, err := cache.GetSetting(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
		require.NoError(t, err)
		raw, _ := setting.StringValue()
		assert.Equal(t, "2.5", raw)
	}
	assert.Equal(t, 1, backing.reads)
	assert.True(t, mr.Exists(settingsCacheKey(models.SettingCategoryPlatform, models.SettingPlatformFeePercent)))

	seedFee(t, store, "1.5")
	require.NoError(t, cache.Invalidate(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent))

	setting, err := cache.GetSetting(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
	require.NoError(t, err)
	raw, _ := setting.StringValue()
	assert.Equal(t, "1.5", raw)
	assert.Equal(t, 2, backing.reads)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(settingsCacheKey(models.SettingCategoryPlatform, models.SettingPlatformFeePercent)))
}

func TestCachedSettingsMissIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCachedSettings(NewMemoryStore(), client, time.Minute)
	_, err := cache.GetSetting(context.Background(), models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mr.Keys())
}

func TestCachedSettingsSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	store := NewMemoryStore()
	seedFee(t, store, "2.5")
	cache := NewCachedSettings(store, client, time.Minute)

	mr.Close()

	setting, err := cache.GetSetting(context.Background(), models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
	require.NoError(t, err)
	raw, _ := setting.StringValue()
	assert.Equal(t, "2.5", raw)
}
