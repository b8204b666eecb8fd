package repairs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines data access methods for repairs.
type RepositoryPort interface {
	List(ctx context.Context) ([]Repair, error)
	Get(ctx context.Context, id int64) (Repair, error)
	Create(ctx context.Context, repair Repair) (Repair, error)
	Update(ctx context.Context, repair Repair) (Repair, error)
	Delete(ctx context.Context, id int64) error
	CountOpen(ctx context.Context) (int, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const repairColumns = `id, asset_tag, defect, vendor, cost_cents, status, created_at, updated_at`

// List returns all repairs, newest first.
func (r *Repository) List(ctx context.Context) ([]Repair, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+repairColumns+` FROM repairs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Repair
	for rows.Next() {
		rec, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get fetches a repair by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Repair, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id = $1`, id)
	rec, err := scanRepair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Repair{}, shared.ErrNotFound
		}
		return Repair{}, err
	}
	return rec, nil
}

// Create inserts a new repair record.
func (r *Repository) Create(ctx context.Context, repair Repair) (Repair, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO repairs (asset_tag, defect, vendor, cost_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+repairColumns,
		repair.AssetTag, repair.Defect, repair.Vendor, repair.CostCents, repair.Status)
	return scanRepair(row)
}

// Update modifies an existing repair record.
func (r *Repository) Update(ctx context.Context, repair Repair) (Repair, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE repairs SET defect = $2, vendor = $3, cost_cents = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+repairColumns,
		repair.ID, repair.Defect, repair.Vendor, repair.CostCents, repair.Status)
	updated, err := scanRepair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Repair{}, shared.ErrNotFound
		}
		return Repair{}, err
	}
	return updated, nil
}

// Delete removes a repair record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM repairs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountOpen returns the number of repairs not yet completed or written off.
func (r *Repository) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM repairs WHERE status IN ($1, $2)`, StatusReported, StatusInService).Scan(&count)
	return count, err
}

func scanRepair(row pgx.Row) (Repair, error) {
	var rec Repair
	err := row.Scan(&rec.ID, &rec.AssetTag, &rec.Defect, &rec.Vendor, &rec.CostCents, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

var _ RepositoryPort = (*Repository)(nil)
