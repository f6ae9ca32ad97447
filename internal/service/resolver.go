package service

import (
	"context"
	"errors"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"go.uber.org/zap"
)

type ResolutionKind int

const (
	// ResolutionRedirect человек: отдаём редирект на URL
	ResolutionRedirect ResolutionKind = iota + 1
	// ResolutionPreview бот: отдаём HTML с мета-тегами
	ResolutionPreview
)

// Resolution результат разрешения короткого ключа
type Resolution struct {
	Kind ResolutionKind
	URL  string
	HTML []byte
	Link *models.Link
}

// Resolver обрабатывает переход по короткой ссылке: кэш, затем хранилище,
// проверка срока и архива, ветвление бот/человек и учёт клика.
type Resolver struct {
	linkRepo   repository.LinkRepository
	cacheRepo  repository.CacheRepository
	clicks     ClickProcessor
	classifier ClientClassifier
	renderer   *PreviewRenderer
	logger     *zap.Logger
	metrics    *Metrics
	now        func() time.Time
}

func NewResolver(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	clicks ClickProcessor,
	classifier ClientClassifier,
	logger *zap.Logger,
	opts ...Option,
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = NewClientClassifier()
	}
	o := buildOptions(opts)
	return &Resolver{
		linkRepo:   linkRepo,
		cacheRepo:  cacheRepo,
		clicks:     clicks,
		classifier: classifier,
		renderer:   NewPreviewRenderer(),
		logger:     logger,
		metrics:    o.metrics,
		now:        o.now,
	}
}

// Resolve возвращает ErrEmptyKey, repository.ErrLinkNotFound или ErrLinkGone
// для соответствующих исходов, иначе редирект или превью.
func (r *Resolver) Resolve(ctx context.Context, key, userAgent string) (*Resolution, error) {
	if key == "" {
		r.metrics.redirect(outcomeBadRequest)
		return nil, ErrEmptyKey
	}

	link, err := r.lookup(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			r.metrics.redirect(outcomeNotFound)
		} else {
			r.metrics.redirect(outcomeError)
		}
		return nil, err
	}

	// Сначала срок действия, затем архив
	if link.IsExpired(r.now()) || link.Archived {
		r.metrics.redirect(outcomeGone)
		return nil, ErrLinkGone
	}

	if r.classifier.IsAutomated(userAgent) {
		html, err := r.renderer.Render(link)
		if err != nil {
			r.metrics.redirect(outcomeError)
			return nil, err
		}
		r.metrics.redirect(outcomePreview)
		return &Resolution{Kind: ResolutionPreview, HTML: html, URL: link.URL, Link: link}, nil
	}

	r.clicks.Dispatch(key, link.Clicks+1)
	r.metrics.redirect(outcomeRedirect)
	return &Resolution{Kind: ResolutionRedirect, URL: link.URL, Link: link}, nil
}

// lookup cache-aside чтение. Ошибки кэша не прерывают запрос: идём в хранилище.
func (r *Resolver) lookup(ctx context.Context, key string) (*models.Link, error) {
	link, err := r.cacheRepo.Get(ctx, key)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		r.metrics.cacheError("get")
		r.logger.Warn("Ошибка чтения из кэша, читаем из БД", zap.String("key", key), zap.Error(err))
	}

	link, err = r.linkRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	// Архивные и истёкшие ссылки в кэш не возвращаем
	if !link.Redirectable(r.now()) {
		return link, nil
	}
	if _, err := r.cacheRepo.Set(ctx, key, link, repository.SetOptions{}); err != nil {
		r.metrics.cacheError("set")
		r.logger.Warn("Не удалось записать ссылку в кэш", zap.String("key", key), zap.Error(err))
	}

	return link, nil
}
