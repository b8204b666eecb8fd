package issuance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines data access methods for issuances.
type RepositoryPort interface {
	List(ctx context.Context) ([]Issuance, error)
	Get(ctx context.Context, id int64) (Issuance, error)
	Create(ctx context.Context, rec Issuance) (Issuance, error)
	MarkReturned(ctx context.Context, id int64, status string) (Issuance, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const issuanceColumns = `id, reference, asset_tag, employee_id, status, issued_at, COALESCE(returned_at, '0001-01-01'), notes, created_at, updated_at`

// List returns all issuances, newest first.
func (r *Repository) List(ctx context.Context) ([]Issuance, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+issuanceColumns+` FROM issuances ORDER BY issued_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Issuance
	for rows.Next() {
		rec, err := scanIssuance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get fetches an issuance by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Issuance, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+issuanceColumns+` FROM issuances WHERE id = $1`, id)
	rec, err := scanIssuance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issuance{}, shared.ErrNotFound
		}
		return Issuance{}, err
	}
	return rec, nil
}

// Create inserts a new issuance.
func (r *Repository) Create(ctx context.Context, rec Issuance) (Issuance, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO issuances (reference, asset_tag, employee_id, status, issued_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), $5, NOW(), NOW())
		RETURNING `+issuanceColumns,
		rec.Reference, rec.AssetTag, rec.EmployeeID, rec.Status, rec.Notes)
	return scanIssuance(row)
}

// MarkReturned closes out an issuance with the given terminal status.
func (r *Repository) MarkReturned(ctx context.Context, id int64, status string) (Issuance, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE issuances SET status = $2, returned_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING `+issuanceColumns,
		id, status, StatusIssued)
	rec, err := scanIssuance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issuance{}, shared.ErrNotFound
		}
		return Issuance{}, err
	}
	return rec, nil
}

func scanIssuance(row pgx.Row) (Issuance, error) {
	var rec Issuance
	err := row.Scan(&rec.ID, &rec.Reference, &rec.AssetTag, &rec.EmployeeID, &rec.Status, &rec.IssuedAt, &rec.ReturnedAt, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

var _ RepositoryPort = (*Repository)(nil)
