// Package migrations схема хранилища ссылок, встроенная в бинарник
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql
var migrationsFS embed.FS

// Migrator применяет миграции к выбранному драйверу БД
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

func New(cfg config.DBConfig, logger *zap.Logger) (*Migrator, error) {
	dir, databaseURL, err := target(cfg)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

func target(cfg config.DBConfig) (dir, databaseURL string, err error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return "sql/postgres", cfg.PostgresURL(), nil
	case config.DriverSQLite:
		return "sql/sqlite", "sqlite://" + cfg.SQLitePath + "?_pragma=busy_timeout(5000)", nil
	default:
		return "", "", fmt.Errorf("unsupported DB driver %q", cfg.Driver)
	}
}

// Up применяет все недостающие миграции
func (m *Migrator) Up() error {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		m.logger.Warn("database is dirty, forcing version", zap.Uint("version", version))
		if err := m.migrate.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	newVersion, _, _ := m.migrate.Version()
	m.logger.Info("migrations applied", zap.Uint("version", newVersion))
	return nil
}

// Down откатывает одну миграцию
func (m *Migrator) Down() error {
	if err := m.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("nothing to roll back")
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, _, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		m.logger.Info("all migrations rolled back")
		return nil
	}
	m.logger.Info("migration rolled back", zap.Uint("version", version))
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close migrations source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close migrations database: %w", dbErr)
	}
	return nil
}
