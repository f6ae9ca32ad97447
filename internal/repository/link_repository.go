package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound    = errors.New("link not found")
	ErrKeyExists       = errors.New("short key already exists")
	ErrAlreadyArchived = errors.New("link already archived")
	ErrInvalidSort     = errors.New("invalid sort field")
)

// LinkRepository постоянное хранилище ссылок
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	FindByKey(ctx context.Context, key string) (*models.Link, error)
	List(ctx context.Context, filter models.ListFilter) (*models.LinkPage, error)
	Archive(ctx context.Context, key string) error
	IncrementClicks(ctx context.Context, key string, by int64) error
	Ping(ctx context.Context) error
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_key, url, title, description, image, archived, expires_at, clicks, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.Key,
		link.URL,
		link.Title,
		link.Description,
		link.Image,
		link.Archived,
		link.ExpiresAt,
		link.Clicks,
		link.UserID,
	).Scan(&link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) FindByKey(ctx context.Context, key string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_key = $1`

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) List(ctx context.Context, filter models.ListFilter) (*models.LinkPage, error) {
	q, err := buildListQuery(filter, postgresDialect)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM links`+q.where, q.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	args := append(q.args, q.limit, q.offset)
	query := fmt.Sprintf(`SELECT %s FROM links%s%s LIMIT $%d OFFSET $%d`,
		linkColumns, q.where, q.order, len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]*models.Link, 0, PageSize)
	for rows.Next() {
		link, err := scanLink(rows)
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

func (r *linkRepository) Archive(ctx context.Context, key string) error {
	query := `UPDATE links SET archived = TRUE, updated_at = NOW() WHERE short_key = $1 AND archived = FALSE`

	result, err := r.db.Pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to archive link: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Ничего не обновили: либо ссылки нет, либо она уже в архиве
	var archived bool
	err = r.db.Pool.QueryRow(ctx, `SELECT archived FROM links WHERE short_key = $1`, key).Scan(&archived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to check link: %w", err)
	}

	return ErrAlreadyArchived
}

func (r *linkRepository) IncrementClicks(ctx context.Context, key string, by int64) error {
	query := `UPDATE links SET clicks = clicks + $1, updated_at = NOW() WHERE short_key = $2`

	result, err := r.db.Pool.Exec(ctx, query, by, key)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) Ping(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

func scanLink(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	var expiresAt *time.Time
	err := row.Scan(
		&link.Key,
		&link.URL,
		&link.Title,
		&link.Description,
		&link.Image,
		&link.Archived,
		&expiresAt,
		&link.Clicks,
		&link.UserID,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		link.ExpiresAt = &t
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = link.UpdatedAt.UTC()
	return link, nil
}

// isUniqueViolation нарушение уникального ключа (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
