package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu    sync.RWMutex
	links map[string]*models.Link
	order []string

	// FindCalls количество обращений к FindByKey
	FindCalls int
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links: make(map[string]*models.Link),
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.Key]; exists {
		return repository.ErrKeyExists
	}

	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now
	stored := *link
	m.links[link.Key] = &stored
	m.order = append(m.order, link.Key)
	return nil
}

func (m *MockLinkRepository) FindByKey(ctx context.Context, key string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls++

	link, exists := m.links[key]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	found := *link
	return &found, nil
}

func (m *MockLinkRepository) List(ctx context.Context, filter models.ListFilter) (*models.LinkPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if filter.Sort != "" && filter.Sort != "key" && filter.Sort != "clicks" && filter.Sort != "createdAt" {
		return nil, repository.ErrInvalidSort
	}

	search := strings.ToLower(filter.Search)
	var matched []*models.Link
	for _, key := range m.order {
		link := *m.links[key]
		if filter.UserID != "" && (link.UserID == nil || *link.UserID != filter.UserID) {
			continue
		}
		if !filter.IncludeArchived && link.Archived {
			continue
		}
		if search != "" && !containsAny(search, link.Key, link.URL, link.Title, link.Description) {
			continue
		}
		matched = append(matched, &link)
	}

	switch filter.Sort {
	case "key":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	case "clicks":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Clicks < matched[j].Clicks })
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * repository.PageSize
	end := start + repository.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return &models.LinkPage{
		Links:    append([]*models.Link{}, matched[start:end]...),
		Page:     page,
		PageSize: repository.PageSize,
		Total:    int64(len(matched)),
	}, nil
}

func (m *MockLinkRepository) Archive(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[key]
	if !exists {
		return repository.ErrLinkNotFound
	}
	if link.Archived {
		return repository.ErrAlreadyArchived
	}
	link.Archived = true
	link.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, key string, by int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[key]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.Clicks += by
	return nil
}

func (m *MockLinkRepository) Ping(ctx context.Context) error {
	return nil
}

// Put кладёт ссылку напрямую, минуя проверки
func (m *MockLinkRepository) Put(link *models.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *link
	if _, exists := m.links[link.Key]; !exists {
		m.order = append(m.order, link.Key)
	}
	m.links[link.Key] = &stored
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[string]*models.Link)
	m.order = nil
	m.FindCalls = 0
}

func containsAny(needle string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu      sync.RWMutex
	cache   map[string]*models.Link
	expires map[string]time.Time

	// Err, если задана, возвращается из всех операций
	Err error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache:   make(map[string]*models.Link),
		expires: make(map[string]time.Time),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	link, exists := m.cache[key]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	if exp, ok := m.expires[key]; ok && !exp.After(time.Now()) {
		return nil, repository.ErrCacheMiss
	}
	cached := *link
	return &cached, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, link *models.Link, opts repository.SetOptions) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	if opts.ExpireAt != nil && !opts.ExpireAt.After(time.Now()) {
		return false, nil
	}
	if _, exists := m.cache[key]; exists && opts.CreateOnly {
		return false, nil
	}

	cached := *link
	m.cache[key] = &cached
	delete(m.expires, key)
	if opts.ExpireAt != nil {
		m.expires[key] = *opts.ExpireAt
	}
	return true, nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	delete(m.cache, key)
	delete(m.expires, key)
	return nil
}

func (m *MockCacheRepository) Ping(ctx context.Context) error {
	return m.Err
}

// ExpireAt срок записи, заданный при Set
func (m *MockCacheRepository) ExpireAt(key string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.expires[key]
	return exp, ok
}

// SetErr включает или выключает сбой кэша
func (m *MockCacheRepository) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*models.Link)
	m.expires = make(map[string]time.Time)
	m.Err = nil
}
