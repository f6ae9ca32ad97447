package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

type memoryCache struct {
	store *gocache.Cache
	now   func() time.Time
}

// NewMemoryCache кэш в памяти процесса, для одного инстанса и тестов.
// Записи хранятся в виде JSON, чтобы вызывающий код не мог изменить
// закэшированную ссылку через указатель.
func NewMemoryCache(cleanupInterval time.Duration) CacheRepository {
	return &memoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (*models.Link, error) {
	v, ok := c.store.Get(cacheKey(key))
	if !ok {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cached value type %T", v)
	}
	return decodeLink(data)
}

func (c *memoryCache) Set(_ context.Context, key string, link *models.Link, opts SetOptions) (bool, error) {
	ttl := gocache.NoExpiration
	if opts.ExpireAt != nil {
		ttl = opts.ExpireAt.Sub(c.now())
		if ttl <= 0 {
			return false, nil
		}
	}

	data, err := json.Marshal(link)
	if err != nil {
		return false, fmt.Errorf("failed to marshal link: %w", err)
	}

	if opts.CreateOnly {
		// Add атомарен и падает, если ключ уже есть
		if err := c.store.Add(cacheKey(key), data, ttl); err != nil {
			return false, nil
		}
		return true, nil
	}

	c.store.Set(cacheKey(key), data, ttl)
	return true, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(cacheKey(key))
	return nil
}

func (c *memoryCache) Ping(context.Context) error {
	return nil
}
