package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/migrations"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func migrate(t *testing.T, cfg config.DBConfig) {
	t.Helper()

	m, err := migrations.New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())
}

func newSQLiteRepo(t *testing.T) repository.LinkRepository {
	t.Helper()

	cfg := config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "links.db"),
	}
	migrate(t, cfg)

	db, err := repository.NewSQLiteDB(t.Context(), cfg.SQLitePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewSQLiteLinkRepository(db)
}

func newPostgresRepo(t *testing.T) repository.LinkRepository {
	t.Helper()
	ctx := t.Context()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("shortener"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DBConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     port.Port(),
		User:     "user",
		Password: "password",
		Name:     "shortener",
		SSLMode:  "disable",
		MaxConns: 8,
		MinConns: 2,
	}
	migrate(t, cfg)

	db, err := repository.NewPostgresDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	// размеры пула берутся из конфига
	require.Equal(t, int32(8), db.Pool.Config().MaxConns)
	require.Equal(t, int32(2), db.Pool.Config().MinConns)

	return repository.NewLinkRepository(db)
}

func TestSQLiteLinkRepository(t *testing.T) {
	testLinkRepository(t, newSQLiteRepo)
}

func TestPostgresLinkRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}
	testLinkRepository(t, newPostgresRepo)
}

// testLinkRepository общий набор проверок для всех реализаций хранилища
func testLinkRepository(t *testing.T, newRepo func(t *testing.T) repository.LinkRepository) {
	t.Run("создание и чтение", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		userID := "user-1"
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		link := &models.Link{
			Key:         "docs/intro",
			URL:         "https://example.com/docs",
			Title:       "Документация",
			Description: "Введение",
			Image:       "https://example.com/logo.png",
			ExpiresAt:   &expires,
			UserID:      &userID,
		}
		require.NoError(t, repo.Create(ctx, link))
		assert.False(t, link.CreatedAt.IsZero())

		got, err := repo.FindByKey(ctx, "docs/intro")
		require.NoError(t, err)
		assert.Equal(t, link.URL, got.URL)
		assert.Equal(t, "Документация", got.Title)
		assert.Equal(t, "Введение", got.Description)
		assert.Equal(t, link.Image, got.Image)
		assert.False(t, got.Archived)
		assert.Zero(t, got.Clicks)
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, expires.Equal(*got.ExpiresAt))
		require.NotNil(t, got.UserID)
		assert.Equal(t, userID, *got.UserID)
	})

	t.Run("повторный ключ", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		require.NoError(t, repo.Create(ctx, &models.Link{Key: "abc", URL: "https://a.example"}))
		err := repo.Create(ctx, &models.Link{Key: "abc", URL: "https://b.example"})
		assert.ErrorIs(t, err, repository.ErrKeyExists)

		got, err := repo.FindByKey(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://a.example", got.URL)
	})

	t.Run("отсутствующая ссылка", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		_, err := repo.FindByKey(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
		assert.ErrorIs(t, repo.IncrementClicks(ctx, "missing", 1), repository.ErrLinkNotFound)
		assert.ErrorIs(t, repo.Archive(ctx, "missing"), repository.ErrLinkNotFound)
	})

	t.Run("архивирование", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		require.NoError(t, repo.Create(ctx, &models.Link{Key: "old", URL: "https://old.example"}))
		require.NoError(t, repo.Archive(ctx, "old"))
		assert.ErrorIs(t, repo.Archive(ctx, "old"), repository.ErrAlreadyArchived)

		got, err := repo.FindByKey(ctx, "old")
		require.NoError(t, err)
		assert.True(t, got.Archived)
	})

	t.Run("конкурентные клики", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		require.NoError(t, repo.Create(ctx, &models.Link{Key: "hot", URL: "https://hot.example"}))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.IncrementClicks(ctx, "hot", 1))
			}()
		}
		wg.Wait()

		got, err := repo.FindByKey(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(50), got.Clicks)
	})

	t.Run("список", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		owner, other := "owner", "other"
		for i := 0; i < 12; i++ {
			require.NoError(t, repo.Create(ctx, &models.Link{
				Key:    fmt.Sprintf("k%02d", i),
				URL:    fmt.Sprintf("https://example.com/%02d", 11-i),
				UserID: &owner,
			}))
		}
		require.NoError(t, repo.Create(ctx, &models.Link{Key: "foreign", URL: "https://foreign.example", UserID: &other}))
		require.NoError(t, repo.Create(ctx, &models.Link{Key: "promo", URL: "https://shop.example/100%_off", Title: "Sale", UserID: &owner}))
		require.NoError(t, repo.Archive(ctx, "k00"))

		page, err := repo.List(ctx, models.ListFilter{UserID: owner})
		require.NoError(t, err)
		assert.Equal(t, int64(12), page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, repository.PageSize, page.PageSize)
		assert.Len(t, page.Links, 10)

		page, err = repo.List(ctx, models.ListFilter{UserID: owner, Page: 2})
		require.NoError(t, err)
		assert.Len(t, page.Links, 2)

		page, err = repo.List(ctx, models.ListFilter{UserID: owner, IncludeArchived: true})
		require.NoError(t, err)
		assert.Equal(t, int64(13), page.Total)

		page, err = repo.List(ctx, models.ListFilter{Search: "FOREIGN"})
		require.NoError(t, err)
		require.Len(t, page.Links, 1)
		assert.Equal(t, "foreign", page.Links[0].Key)

		// % и _ в строке поиска ищутся буквально
		page, err = repo.List(ctx, models.ListFilter{Search: "100%_"})
		require.NoError(t, err)
		require.Len(t, page.Links, 1)
		assert.Equal(t, "promo", page.Links[0].Key)

		page, err = repo.List(ctx, models.ListFilter{UserID: owner, Sort: "url"})
		require.NoError(t, err)
		require.NotEmpty(t, page.Links)
		assert.Equal(t, "k11", page.Links[0].Key)

		_, err = repo.List(ctx, models.ListFilter{Sort: "password"})
		assert.ErrorIs(t, err, repository.ErrInvalidSort)
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(t.Context()))
	})
}
