package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type sqliteLinkRepository struct {
	db  *SQLiteDB
	now func() time.Time
}

// NewSQLiteLinkRepository хранилище ссылок в одном файле sqlite
func NewSQLiteLinkRepository(db *SQLiteDB) LinkRepository {
	return &sqliteLinkRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *sqliteLinkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_key, url, title, description, image, archived, expires_at, clicks, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := r.now()
	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		link.Key,
		link.URL,
		link.Title,
		link.Description,
		link.Image,
		link.Archived,
		nullTime(link.ExpiresAt),
		link.Clicks,
		nullString(link.UserID),
		now,
		now,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	link.CreatedAt = now
	link.UpdatedAt = now
	return nil
}

func (r *sqliteLinkRepository) FindByKey(ctx context.Context, key string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_key = ?`

	link, err := scanSQLiteLink(r.db.DB.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *sqliteLinkRepository) List(ctx context.Context, filter models.ListFilter) (*models.LinkPage, error) {
	q, err := buildListQuery(filter, sqliteDialect)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`+q.where, q.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	args := append(q.args, q.limit, q.offset)
	query := `SELECT ` + linkColumns + ` FROM links` + q.where + q.order + ` LIMIT ? OFFSET ?`

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]*models.Link, 0, PageSize)
	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}

	return &models.LinkPage{Links: links, Page: q.page, PageSize: PageSize, Total: total}, nil
}

func (r *sqliteLinkRepository) Archive(ctx context.Context, key string) error {
	query := `UPDATE links SET archived = 1, updated_at = ? WHERE short_key = ? AND archived = 0`

	result, err := r.db.DB.ExecContext(ctx, query, r.now(), key)
	if err != nil {
		return fmt.Errorf("failed to archive link: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	var archived bool
	err = r.db.DB.QueryRowContext(ctx, `SELECT archived FROM links WHERE short_key = ?`, key).Scan(&archived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to check link: %w", err)
	}

	return ErrAlreadyArchived
}

func (r *sqliteLinkRepository) IncrementClicks(ctx context.Context, key string, by int64) error {
	query := `UPDATE links SET clicks = clicks + ?, updated_at = ? WHERE short_key = ?`

	result, err := r.db.DB.ExecContext(ctx, query, by, r.now(), key)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if n == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *sqliteLinkRepository) Ping(ctx context.Context) error {
	return r.db.DB.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLink(row rowScanner) (*models.Link, error) {
	link := &models.Link{}
	var (
		expiresAt sql.NullTime
		userID    sql.NullString
	)
	err := row.Scan(
		&link.Key,
		&link.URL,
		&link.Title,
		&link.Description,
		&link.Image,
		&link.Archived,
		&expiresAt,
		&link.Clicks,
		&userID,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	if userID.Valid {
		link.UserID = &userID.String
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = link.UpdatedAt.UTC()
	return link, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
		return true
	}
	return false
}
