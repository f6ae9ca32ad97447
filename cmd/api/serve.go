package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/handler"
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/migrations"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.DB.AutoMigrate {
		if err := migrate(cfg.DB, logger); err != nil {
			return err
		}
	}

	// Хранилище ссылок
	linkRepo, closeStore, err := openLinkStore(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Кэш
	cacheRepo, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	// Инициализация процессора кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(linkRepo, service.ClickProcessorConfig{
		Workers:   cfg.Clicks.Workers,
		QueueSize: cfg.Clicks.QueueSize,
		Timeout:   cfg.Clicks.Timeout,
	}, logger, metrics)
	clickProcessor.Start()
	defer clickProcessor.Stop()

	opts := []service.Option{
		service.WithMetrics(metrics),
		service.WithReservedKeys(cfg.Links.ReservedKeys),
		service.WithMetadataTimeout(cfg.Links.MetadataTimeout),
	}
	linkService := service.NewLinkService(linkRepo, cacheRepo, service.NewHTTPMetadataFetcher(cfg.Links.MetadataTimeout), logger, opts...)
	resolver := service.NewResolver(linkRepo, cacheRepo, clickProcessor, service.NewClientClassifier(), logger, opts...)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	auth := middleware.NewAuth(middleware.AuthConfig{
		Secret:   cfg.Auth.JWTSecret,
		Required: cfg.Auth.Required,
	})
	if cfg.Auth.JWTSecret != "" {
		logger.Info("JWT authentication enabled", zap.Bool("required", cfg.Auth.Required))
	}

	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": linkRepo,
		"cache":    cacheRepo,
	}, clickProcessor.Stats)

	if cfg.Log.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(linkService, resolver, rateLimiter, auth, health, reg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful Shutdown: сначала сервер, затем очередь кликов и соединения (defer)
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

func migrate(cfg config.DBConfig, logger *zap.Logger) error {
	m, err := migrations.New(cfg, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}

func openLinkStore(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (repository.LinkRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := repository.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		logger.Info("Connected to SQLite", zap.String("path", cfg.SQLitePath))
		return repository.NewSQLiteLinkRepository(db), func() { db.Close() }, nil
	default:
		db, err := repository.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Connected to PostgreSQL")
		return repository.NewLinkRepository(db), db.Close, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.CacheRepository, func(), error) {
	switch cfg.Cache.Driver {
	case config.DriverMemory:
		logger.Info("Using in-memory cache")
		return repository.NewMemoryCache(time.Minute), func() {}, nil
	default:
		redis, err := repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Connected to Redis")
		return repository.NewCacheRepository(redis), func() { redis.Close() }, nil
	}
}
