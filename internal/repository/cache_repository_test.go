package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisCache(t *testing.T) repository.CacheRepository {
	t.Helper()
	ctx := t.Context()

	container, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := repository.NewRedisClient(ctx, config.RedisConfig{Host: host, Port: port.Port(), PoolSize: 5})
	require.NoError(t, err)
	require.Equal(t, 5, client.Client.Options().PoolSize)
	t.Cleanup(func() { client.Close() })

	return repository.NewCacheRepository(client)
}

func newMemoryCache(t *testing.T) repository.CacheRepository {
	return repository.NewMemoryCache(time.Minute)
}

func TestMemoryCache(t *testing.T) {
	testCacheRepository(t, newMemoryCache)
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}
	testCacheRepository(t, newRedisCache)
}

func testCacheRepository(t *testing.T, newCache func(t *testing.T) repository.CacheRepository) {
	t.Run("промах", func(t *testing.T) {
		cache := newCache(t)
		_, err := cache.Get(t.Context(), "nope")
		assert.ErrorIs(t, err, repository.ErrCacheMiss)
	})

	t.Run("запись и чтение", func(t *testing.T) {
		cache := newCache(t)
		ctx := t.Context()

		link := &models.Link{Key: "abc", URL: "https://example.com", Title: "Пример", Clicks: 3}
		ok, err := cache.Set(ctx, "abc", link, repository.SetOptions{})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := cache.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.URL)
		assert.Equal(t, "Пример", got.Title)
		assert.Equal(t, int64(3), got.Clicks)

		// изменение возвращённой копии не влияет на кэш
		got.URL = "https://changed.example"
		again, err := cache.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", again.URL)
	})

	t.Run("только создание", func(t *testing.T) {
		cache := newCache(t)
		ctx := t.Context()

		ok, err := cache.Set(ctx, "abc", &models.Link{Key: "abc", URL: "https://first.example"}, repository.SetOptions{CreateOnly: true})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = cache.Set(ctx, "abc", &models.Link{Key: "abc", URL: "https://second.example"}, repository.SetOptions{CreateOnly: true})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := cache.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://first.example", got.URL)
	})

	t.Run("срок в прошлом", func(t *testing.T) {
		cache := newCache(t)
		ctx := t.Context()

		past := time.Now().Add(-time.Minute)
		ok, err := cache.Set(ctx, "late", &models.Link{Key: "late"}, repository.SetOptions{ExpireAt: &past})
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = cache.Get(ctx, "late")
		assert.ErrorIs(t, err, repository.ErrCacheMiss)
	})

	t.Run("истечение записи", func(t *testing.T) {
		cache := newCache(t)
		ctx := t.Context()

		soon := time.Now().Add(1500 * time.Millisecond)
		ok, err := cache.Set(ctx, "short", &models.Link{Key: "short"}, repository.SetOptions{ExpireAt: &soon})
		require.NoError(t, err)
		require.True(t, ok)

		assert.Eventually(t, func() bool {
			_, err := cache.Get(ctx, "short")
			return err == repository.ErrCacheMiss
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("удаление", func(t *testing.T) {
		cache := newCache(t)
		ctx := t.Context()

		_, err := cache.Set(ctx, "gone", &models.Link{Key: "gone"}, repository.SetOptions{})
		require.NoError(t, err)
		require.NoError(t, cache.Delete(ctx, "gone"))
		require.NoError(t, cache.Delete(ctx, "gone"))

		_, err = cache.Get(ctx, "gone")
		assert.ErrorIs(t, err, repository.ErrCacheMiss)
	})
}
