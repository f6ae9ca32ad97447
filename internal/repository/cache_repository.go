package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// SetOptions параметры записи в кэш
type SetOptions struct {
	// CreateOnly записать, только если ключа ещё нет
	CreateOnly bool
	// ExpireAt абсолютный момент истечения записи, nil без срока
	ExpireAt *time.Time
}

// CacheRepository быстрый слой перед LinkRepository.
// Set возвращает false, если запись не выполнена (ключ уже есть при CreateOnly
// или срок ExpireAt уже прошёл).
type CacheRepository interface {
	Get(ctx context.Context, key string) (*models.Link, error)
	Set(ctx context.Context, key string, link *models.Link, opts SetOptions) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type cacheRepository struct {
	redis *RedisDB
	now   func() time.Time
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis, now: time.Now}
}

func (r *cacheRepository) Get(ctx context.Context, key string) (*models.Link, error) {
	data, err := r.redis.Client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached link: %w", err)
	}

	return decodeLink(data)
}

func (r *cacheRepository) Set(ctx context.Context, key string, link *models.Link, opts SetOptions) (bool, error) {
	if opts.ExpireAt != nil && !opts.ExpireAt.After(r.now()) {
		return false, nil
	}

	data, err := json.Marshal(link)
	if err != nil {
		return false, fmt.Errorf("failed to marshal link: %w", err)
	}

	args := redis.SetArgs{}
	if opts.CreateOnly {
		args.Mode = "NX"
	}
	if opts.ExpireAt != nil {
		args.ExpireAt = *opts.ExpireAt
	}

	err = r.redis.Client.SetArgs(ctx, r.key(key), data, args).Err()
	if err != nil {
		// NX не выполнил запись
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to cache link: %w", err)
	}

	return true, nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	return r.redis.Client.Del(ctx, r.key(key)).Err()
}

func (r *cacheRepository) Ping(ctx context.Context) error {
	return r.redis.Client.Ping(ctx).Err()
}

func (r *cacheRepository) key(key string) string {
	return cacheKey(key)
}

func cacheKey(key string) string {
	return "link:" + key
}

func decodeLink(data []byte) (*models.Link, error) {
	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}
	return &link, nil
}
