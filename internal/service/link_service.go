package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"go.uber.org/zap"
)

// Ошибки сервиса. Все ошибки валидации оборачивают ErrValidation.
var (
	ErrValidation    = errors.New("ошибка валидации")
	ErrMissingFields = fmt.Errorf("%w: url и key обязательны", ErrValidation)
	ErrEmptyKey      = fmt.Errorf("%w: пустой ключ", ErrValidation)
	ErrInvalidKey    = fmt.Errorf("%w: недопустимые символы в ключе", ErrValidation)
	ErrInvalidURL    = fmt.Errorf("%w: невалидный URL", ErrValidation)
	ErrExpiryInPast  = fmt.Errorf("%w: срок действия уже истёк", ErrValidation)
	ErrKeyConflict   = errors.New("ключ уже занят")
	ErrLinkGone      = errors.New("ссылка истекла или в архиве")
)

// Ограничения длины метаданных (в символах)
const (
	maxTitleLength       = 120
	maxDescriptionLength = 240
)

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	GetLink(ctx context.Context, key string) (*models.Link, error)
	ListLinks(ctx context.Context, filter models.ListFilter) (*models.LinkPage, error)
	ArchiveLink(ctx context.Context, key string) error
	GetClicks(ctx context.Context, key string) (int64, error)
}

// linkService реализация сервиса ссылок
type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	fetcher   MetadataFetcher
	logger    *zap.Logger
	reserved  reservedKeys
	opts      options
}

// NewLinkService создаёт новый экземпляр сервиса. fetcher может быть nil,
// тогда метаданные не загружаются.
func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	fetcher MetadataFetcher,
	logger *zap.Logger,
	opts ...Option,
) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &linkService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		fetcher:   fetcher,
		logger:    logger,
		reserved:  newReservedKeys(o.reservedKeys),
		opts:      o,
	}
}

// CreateLink создаёт новую короткую ссылку
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	if input.URL == "" || input.Key == "" {
		return nil, ErrMissingFields
	}
	if err := validateURL(input.URL); err != nil {
		return nil, err
	}

	key, ok := NormalizeKey(input.Key)
	if !ok {
		return nil, ErrInvalidKey
	}

	var expiresAt *time.Time
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(s.opts.now()) {
			return nil, ErrExpiryInPast
		}
		t := input.ExpiresAt.UTC()
		expiresAt = &t
	}

	// Сначала зарезервированные ключи, затем хранилище
	if s.reserved.has(key) {
		return nil, ErrKeyConflict
	}
	if _, err := s.linkRepo.FindByKey(ctx, key); err == nil {
		return nil, ErrKeyConflict
	} else if !errors.Is(err, repository.ErrLinkNotFound) {
		return nil, fmt.Errorf("failed to check key: %w", err)
	}

	meta := s.fetchMetadata(ctx, input.URL)

	link := &models.Link{
		Key:         key,
		URL:         input.URL,
		Title:       truncate(meta.Title, maxTitleLength),
		Description: truncate(meta.Description, maxDescriptionLength),
		Image:       meta.Image,
		ExpiresAt:   expiresAt,
		UserID:      input.UserID,
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		// Ключ успели занять между проверкой и вставкой
		if errors.Is(err, repository.ErrKeyExists) {
			return nil, ErrKeyConflict
		}
		return nil, err
	}

	// Кэширование: не перезаписываем существующую запись, срок дублирует хранилище
	_, err := s.cacheRepo.Set(ctx, key, link, repository.SetOptions{CreateOnly: true, ExpireAt: expiresAt})
	if err != nil {
		s.opts.metrics.cacheError("set")
		s.logger.Warn("Не удалось закэшировать ссылку", zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("Ссылка создана", zap.String("key", key), zap.String("url", link.URL))
	return link, nil
}

// GetLink возвращает ссылку из хранилища
func (s *linkService) GetLink(ctx context.Context, key string) (*models.Link, error) {
	key, err := keyParam(key)
	if err != nil {
		return nil, err
	}
	return s.linkRepo.FindByKey(ctx, key)
}

// ListLinks постраничный список ссылок
func (s *linkService) ListLinks(ctx context.Context, filter models.ListFilter) (*models.LinkPage, error) {
	page, err := s.linkRepo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, err
	}
	return page, nil
}

// ArchiveLink переводит ссылку в архив и удаляет её из кэша
func (s *linkService) ArchiveLink(ctx context.Context, key string) error {
	key, err := keyParam(key)
	if err != nil {
		return err
	}

	if err := s.linkRepo.Archive(ctx, key); err != nil {
		return err
	}

	s.evict(ctx, key)

	// Параллельный редирект мог прочитать строку до архивации и вернуть её
	// в кэш уже после удаления. Архив необратим, поэтому любая запись по
	// этому ключу устарела: удаляем её ещё раз с задержкой.
	if s.opts.evictDelay > 0 {
		time.AfterFunc(s.opts.evictDelay, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.evict(ctx, key)
		})
	}

	s.logger.Info("Ссылка архивирована", zap.String("key", key))
	return nil
}

func (s *linkService) evict(ctx context.Context, key string) {
	if err := s.cacheRepo.Delete(ctx, key); err != nil {
		s.opts.metrics.cacheError("delete")
		s.logger.Error("Не удалось удалить ссылку из кэша после архивации",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// GetClicks возвращает счётчик кликов из хранилища
func (s *linkService) GetClicks(ctx context.Context, key string) (int64, error) {
	key, err := keyParam(key)
	if err != nil {
		return 0, err
	}

	link, err := s.linkRepo.FindByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	return link.Clicks, nil
}

func (s *linkService) fetchMetadata(ctx context.Context, pageURL string) models.Metadata {
	if s.fetcher == nil {
		return models.Metadata{}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.metadataTimeout)
	defer cancel()

	meta, err := s.fetcher.Fetch(fetchCtx, pageURL)
	if err != nil || meta == nil {
		s.logger.Warn("Не удалось получить метаданные страницы",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return models.Metadata{}
	}
	return *meta
}

// keyParam проверяет ключ из пути запроса
func keyParam(raw string) (string, error) {
	if strings.Trim(raw, "/") == "" {
		return "", ErrEmptyKey
	}
	key, ok := NormalizeKey(raw)
	if !ok {
		return "", ErrInvalidKey
	}
	return key, nil
}

// validateURL допускает только абсолютные http(s) адреса
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	return nil
}

// truncate обрезает строку до limit символов, заменяя последние три на "..."
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
