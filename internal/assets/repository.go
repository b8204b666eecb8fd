package assets

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines data access methods for assets.
type RepositoryPort interface {
	List(ctx context.Context) ([]Asset, error)
	Get(ctx context.Context, id int64) (Asset, error)
	Create(ctx context.Context, asset Asset) (Asset, error)
	Update(ctx context.Context, asset Asset) (Asset, error)
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

const assetColumns = `id, tag, name, category, serial_number, status, assigned_to, warranty_expiry, created_at, updated_at`

// List returns all assets ordered by tag.
func (r *Repository) List(ctx context.Context) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

// Get fetches an asset by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, err
	}
	return asset, nil
}

// Create inserts a new asset.
func (r *Repository) Create(ctx context.Context, asset Asset) (Asset, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO assets (tag, name, category, serial_number, status, assigned_to, warranty_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+assetColumns,
		asset.Tag, asset.Name, asset.Category, asset.SerialNumber, asset.Status, asset.AssignedTo, asset.WarrantyExpiry)
	created, err := scanAsset(row)
	if err != nil {
		return Asset{}, mapUniqueViolation(err)
	}
	return created, nil
}

// Update modifies an existing asset.
func (r *Repository) Update(ctx context.Context, asset Asset) (Asset, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE assets SET name = $2, category = $3, serial_number = $4, status = $5, assigned_to = $6, warranty_expiry = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+assetColumns,
		asset.ID, asset.Name, asset.Category, asset.SerialNumber, asset.Status, asset.AssignedTo, asset.WarrantyExpiry)
	updated, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// Delete removes an asset.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Tag, &a.Name, &a.Category, &a.SerialNumber, &a.Status, &a.AssignedTo, &a.WarrantyExpiry, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
