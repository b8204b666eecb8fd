package kb

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines data access methods for knowledgebase articles.
type RepositoryPort interface {
	List(ctx context.Context, publishedOnly bool) ([]Article, error)
	GetBySlug(ctx context.Context, slug string) (Article, error)
	Get(ctx context.Context, id int64) (Article, error)
	Create(ctx context.Context, a Article) (Article, error)
	Update(ctx context.Context, a Article) (Article, error)
	Delete(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const articleColumns = `id, title, slug, body, tags, published, author_id, created_at, updated_at`

// List returns articles, optionally filtered to published ones.
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]Article, error) {
	query := `SELECT ` + articleColumns + ` FROM kb_articles`
	if publishedOnly {
		query += ` WHERE published = TRUE`
	}
	query += ` ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetBySlug fetches an article by its URL slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Article, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM kb_articles WHERE slug = $1`, slug)
	return scanArticle(row)
}

// Get fetches an article by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Article, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM kb_articles WHERE id = $1`, id)
	return scanArticle(row)
}

// Create inserts a new article.
func (r *Repository) Create(ctx context.Context, a Article) (Article, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO kb_articles (title, slug, body, tags, published, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING `+articleColumns,
		a.Title, a.Slug, a.Body, a.Tags, a.Published, a.AuthorID)
	created, err := scanArticle(row)
	if err != nil {
		return Article{}, mapUniqueViolation(err)
	}
	return created, nil
}

// Update updates an article. The slug is immutable after creation.
func (r *Repository) Update(ctx context.Context, a Article) (Article, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE kb_articles SET title = $2, body = $3, tags = $4, published = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+articleColumns,
		a.ID, a.Title, a.Body, a.Tags, a.Published)
	updated, err := scanArticle(row)
	if err != nil {
		return Article{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// Delete removes an article.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM kb_articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanArticle(row pgx.Row) (Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Body, &a.Tags, &a.Published, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, shared.ErrNotFound
		}
		return Article{}, err
	}
	return a, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
