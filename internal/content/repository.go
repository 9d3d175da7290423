package content

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists content items.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Item, int, error)
	GetBySlug(ctx context.Context, kind Kind, slug string) (Item, error)
	Get(ctx context.Context, kind Kind, id uuid.UUID) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
}

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgreSQL content repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

const itemColumns = `id, kind, slug, title, summary, body, image_url, published, author_id, created_at, updated_at`

func (r *repo) List(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	query := `SELECT ` + itemColumns + `, count(*) OVER () FROM content_items WHERE kind = $1`
	if filters.PublishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY updated_at DESC, id LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, filters.Kind, filters.Limit, filters.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		items []Item
		total int
	)
	for rows.Next() {
		var item Item
		if err := rows.Scan(itemDest(&item, &total)...); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repo) GetBySlug(ctx context.Context, kind Kind, slug string) (Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE kind = $1 AND slug = $2`
	return scanItem(r.db.QueryRow(ctx, query, kind, slug))
}

func (r *repo) Get(ctx context.Context, kind Kind, id uuid.UUID) (Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE kind = $1 AND id = $2`
	return scanItem(r.db.QueryRow(ctx, query, kind, id))
}

func (r *repo) Create(ctx context.Context, item Item) (Item, error) {
	query := `INSERT INTO content_items (id, kind, slug, title, summary, body, image_url, published, author_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query, item.ID, item.Kind, item.Slug, item.Title, item.Summary, item.Body, item.ImageURL, item.Published, item.AuthorID, now)
	if err != nil {
		return Item{}, mapWriteError(err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repo) Update(ctx context.Context, item Item) (Item, error) {
	query := `UPDATE content_items SET slug = $1, title = $2, summary = $3, body = $4, image_url = $5, published = $6, updated_at = $7
	          WHERE kind = $8 AND id = $9 RETURNING created_at`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, item.Slug, item.Title, item.Summary, item.Body, item.ImageURL, item.Published, now, item.Kind, item.ID).Scan(&item.CreatedAt)
	if err != nil {
		return Item{}, mapWriteError(err)
	}
	item.UpdatedAt = now
	return item, nil
}

func (r *repo) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_items WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func itemDest(item *Item, extra ...any) []any {
	dest := []any{&item.ID, &item.Kind, &item.Slug, &item.Title, &item.Summary, &item.Body, &item.ImageURL, &item.Published, &item.AuthorID, &item.CreatedAt, &item.UpdatedAt}
	return append(dest, extra...)
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	if err := row.Scan(itemDest(&item)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func mapWriteError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSlug
	}
	return err
}
